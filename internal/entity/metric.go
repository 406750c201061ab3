package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetricRecord is the flat shape produced from an audit payload.
type MetricRecord struct {
	Score        int
	ResponseTime float64
	FCP          float64
	SI           float64
	LCP          float64
	TBT          float64
	CLS          float64
	SEO          *int
}

// Metric mirrors the `metrics` hypertable. (ID, Time) is the primary key.
type Metric struct {
	ID           uuid.UUID `json:"id"`
	Time         time.Time `json:"time"`
	Score        int       `json:"score"`
	ResponseTime float64   `json:"response_time"`
	FCP          float64   `json:"fcp"`
	SI           float64   `json:"si"`
	LCP          float64   `json:"lcp"`
	TBT          float64   `json:"tbt"`
	CLS          float64   `json:"cls"`
	SEO          *int      `json:"seo,omitempty"`
	PageID       uuid.UUID `json:"page_id"`
}

// NewMetric stamps a record for a page at the given time.
func NewMetric(pageID uuid.UUID, rec *MetricRecord, at time.Time) *Metric {
	return &Metric{
		ID:           uuid.New(),
		Time:         at,
		Score:        rec.Score,
		ResponseTime: rec.ResponseTime,
		FCP:          rec.FCP,
		SI:           rec.SI,
		LCP:          rec.LCP,
		TBT:          rec.TBT,
		CLS:          rec.CLS,
		SEO:          rec.SEO,
		PageID:       pageID,
	}
}

// MetricName is the closed set of metrics a query can project to.
type MetricName string

const (
	MetricScore        MetricName = "score"
	MetricResponseTime MetricName = "response_time"
	MetricFCP          MetricName = "fcp"
	MetricSI           MetricName = "si"
	MetricLCP          MetricName = "lcp"
	MetricTBT          MetricName = "tbt"
	MetricCLS          MetricName = "cls"
)

// ParseMetricName validates a user supplied metric name.
func ParseMetricName(s string) (MetricName, error) {
	switch m := MetricName(s); m {
	case MetricScore, MetricResponseTime, MetricFCP, MetricSI, MetricLCP, MetricTBT, MetricCLS:
		return m, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Of returns the named value of a raw metric row.
func (m MetricName) Of(row *Metric) float64 {
	switch m {
	case MetricScore:
		return float64(row.Score)
	case MetricResponseTime:
		return row.ResponseTime
	case MetricFCP:
		return row.FCP
	case MetricSI:
		return row.SI
	case MetricLCP:
		return row.LCP
	case MetricTBT:
		return row.TBT
	case MetricCLS:
		return row.CLS
	}
	panic(fmt.Sprintf("unhandled metric %q", string(m)))
}

// OfAverage returns the named average of an aggregate bucket.
func (m MetricName) OfAverage(p *AggregatePoint) float64 {
	switch m {
	case MetricScore:
		return p.AvgScore
	case MetricResponseTime:
		return p.AvgResponseTime
	case MetricFCP:
		return p.AvgFCP
	case MetricSI:
		return p.AvgSI
	case MetricLCP:
		return p.AvgLCP
	case MetricTBT:
		return p.AvgTBT
	case MetricCLS:
		return p.AvgCLS
	}
	panic(fmt.Sprintf("unhandled metric %q", string(m)))
}

// Period is the bucket granularity of an aggregate query.
type Period string

const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodHourly, PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// ScopeKind selects which rows an aggregate averages over.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeChannel  ScopeKind = "channel"
	ScopePage     ScopeKind = "page"
	ScopeTheme    ScopeKind = "theme"
	ScopeProvider ScopeKind = "provider"
)

// AggregateScope narrows an aggregate; Value is the channel/page/provider id or theme.
type AggregateScope struct {
	Kind  ScopeKind
	Value string
}

// AggregateQuery is the input of the aggregation engine.
type AggregateQuery struct {
	Period       Period
	Scope        AggregateScope
	StartDate    *time.Time
	EndDate      *time.Time
	MetricFilter *MetricName
}

// AggregatePoint is one averaged bucket.
type AggregatePoint struct {
	PeriodStart     time.Time `json:"period_start"`
	AvgScore        float64   `json:"avg_score"`
	AvgResponseTime float64   `json:"avg_response_time"`
	AvgFCP          float64   `json:"avg_fcp"`
	AvgSI           float64   `json:"avg_si"`
	AvgLCP          float64   `json:"avg_lcp"`
	AvgTBT          float64   `json:"avg_tbt"`
	AvgCLS          float64   `json:"avg_cls"`
}

// TimeRange bounds a query; both ends are inclusive.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// PageMetricsQuery is the input of the raw metrics listing.
type PageMetricsQuery struct {
	Metric    *MetricName
	StartDate *time.Time
	EndDate   *time.Time
}

// ProjectedPoint is a single-metric view of a row, keyed by TimeKey.
type ProjectedPoint struct {
	TimeKey string
	At      time.Time
	Metric  MetricName
	Value   float64
}

func (p ProjectedPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		p.TimeKey:        p.At,
		string(p.Metric): p.Value,
	})
}

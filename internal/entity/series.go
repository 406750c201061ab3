package entity

import "encoding/json"

// AverageSeries is the result of an aggregate query. Projected is set when the
// query named a single metric and then replaces Points in the JSON form.
type AverageSeries struct {
	Points    []*AggregatePoint
	Projected []ProjectedPoint
}

func (s AverageSeries) MarshalJSON() ([]byte, error) {
	if s.Projected != nil {
		return json.Marshal(s.Projected)
	}
	if s.Points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Points)
}

// PageSeries is the raw metric listing of a page, optionally projected.
type PageSeries struct {
	Metrics   []*Metric
	Projected []ProjectedPoint
}

func (s PageSeries) MarshalJSON() ([]byte, error) {
	if s.Projected != nil {
		return json.Marshal(s.Projected)
	}
	if s.Metrics == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Metrics)
}

// ProjectAverages keeps only metric of each bucket, keyed by "period_start".
func ProjectAverages(points []*AggregatePoint, metric MetricName) []ProjectedPoint {
	out := make([]ProjectedPoint, 0, len(points))
	for _, p := range points {
		out = append(out, ProjectedPoint{TimeKey: "period_start", At: p.PeriodStart, Metric: metric, Value: metric.OfAverage(p)})
	}
	return out
}

// ProjectMetrics keeps only metric of each row, keyed by "time".
func ProjectMetrics(rows []*Metric, metric MetricName) []ProjectedPoint {
	out := make([]ProjectedPoint, 0, len(rows))
	for _, m := range rows {
		out = append(out, ProjectedPoint{TimeKey: "time", At: m.Time, Metric: metric, Value: metric.Of(m)})
	}
	return out
}

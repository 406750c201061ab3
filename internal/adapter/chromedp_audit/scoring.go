package chromedp_audit

import (
	"encoding/json"
	"math"

	"github.com/user/perfwatch/internal/lighthouse"
)

// curve is a Lighthouse log-normal scoring curve: a value at p10 scores 0.9,
// a value at median scores 0.5.
type curve struct {
	p10    float64
	median float64
	weight float64
}

// Mobile curves and category weights of Lighthouse 10+.
var mobileCurves = map[string]curve{
	lighthouse.AuditFirstContentfulPaint:   {p10: 1800, median: 3000, weight: 0.10},
	lighthouse.AuditSpeedIndex:             {p10: 3387, median: 5800, weight: 0.10},
	lighthouse.AuditLargestContentfulPaint: {p10: 2500, median: 4000, weight: 0.25},
	lighthouse.AuditTotalBlockingTime:      {p10: 200, median: 600, weight: 0.30},
	lighthouse.AuditCumulativeLayoutShift:  {p10: 0.1, median: 0.25, weight: 0.25},
}

// Φ⁻¹(0.9)
const p10Quantile = 1.28155

func logNormalScore(c curve, value float64) float64 {
	if value <= 0 {
		return 1
	}
	sigma := math.Log(c.median/c.p10) / p10Quantile
	score := 0.5 * math.Erfc((math.Log(value)-math.Log(c.median))/(sigma*math.Sqrt2))
	return math.Min(1, math.Max(0, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// pageSamples are the timings collected in the page.
type pageSamples struct {
	ServerResponseTime float64 `json:"srt"`
	FCP                float64 `json:"fcp"`
	SpeedIndex         float64 `json:"si"`
	LCP                float64 `json:"lcp"`
	TBT                float64 `json:"tbt"`
	CLS                float64 `json:"cls"`
}

type auditResult struct {
	NumericValue float64  `json:"numericValue"`
	Score        *float64 `json:"score"`
}

// buildReport renders samples in the lighthouse result shape read by lighthouse.Adapt.
func buildReport(s pageSamples) ([]byte, error) {
	values := map[string]float64{
		lighthouse.AuditServerResponseTime:     s.ServerResponseTime,
		lighthouse.AuditFirstContentfulPaint:   s.FCP,
		lighthouse.AuditSpeedIndex:             s.SpeedIndex,
		lighthouse.AuditLargestContentfulPaint: s.LCP,
		lighthouse.AuditTotalBlockingTime:      s.TBT,
		lighthouse.AuditCumulativeLayoutShift:  s.CLS,
	}

	audits := make(map[string]auditResult, len(values))
	var performance float64
	for id, v := range values {
		res := auditResult{NumericValue: v}
		if c, ok := mobileCurves[id]; ok {
			score := round2(logNormalScore(c, v))
			res.Score = &score
			performance += score * c.weight
		}
		audits[id] = res
	}

	report := map[string]any{
		"categories": map[string]any{
			"performance": map[string]float64{"score": round2(performance)},
		},
		"audits": audits,
	}
	return json.Marshal(report)
}

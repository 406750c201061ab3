// Package lighthouse maps lighthouse audit reports onto metric records.
package lighthouse

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
	"github.com/user/perfwatch/internal/entity"
)

// ErrSchemaMismatch means the report no longer has the shape the adapter reads.
var ErrSchemaMismatch = errors.New("lighthouse report schema mismatch")

// Audit ids read from the report's audits map.
const (
	AuditServerResponseTime       = "server-response-time"
	AuditFirstContentfulPaint     = "first-contentful-paint"
	AuditSpeedIndex               = "speed-index"
	AuditLargestContentfulPaint   = "largest-contentful-paint"
	AuditTotalBlockingTime        = "total-blocking-time"
	AuditCumulativeLayoutShift    = "cumulative-layout-shift"
	performanceScorePath          = "categories.performance.score"
	seoScorePath                  = "categories.seo.score"
	resultPathInPageSpeedResponse = "lighthouseResult"
)

// ExtractResult pulls the lighthouse result out of a PageSpeed response body.
// The second result is false when the field is absent or not an object.
func ExtractResult(body []byte) ([]byte, bool) {
	res := gjson.GetBytes(body, resultPathInPageSpeedResponse)
	if !res.Exists() || !res.IsObject() {
		return nil, false
	}
	return []byte(res.Raw), true
}

// Adapt maps a lighthouse result onto a metric record.
// Scores are 0-1 fractions scaled to 0-100 and rounded half away from zero.
func Adapt(report []byte) (*entity.MetricRecord, error) {
	if !gjson.ValidBytes(report) {
		return nil, fmt.Errorf("%w: report is not valid JSON", ErrSchemaMismatch)
	}

	score, err := number(report, performanceScorePath)
	if err != nil {
		return nil, err
	}

	rec := &entity.MetricRecord{Score: scaleScore(score)}
	fields := []struct {
		audit string
		dst   *float64
	}{
		{AuditServerResponseTime, &rec.ResponseTime},
		{AuditFirstContentfulPaint, &rec.FCP},
		{AuditSpeedIndex, &rec.SI},
		{AuditLargestContentfulPaint, &rec.LCP},
		{AuditTotalBlockingTime, &rec.TBT},
		{AuditCumulativeLayoutShift, &rec.CLS},
	}
	for _, f := range fields {
		v, err := number(report, "audits."+f.audit+".numericValue")
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if seo := gjson.GetBytes(report, seoScorePath); seo.Type == gjson.Number {
		s := scaleScore(seo.Float())
		rec.SEO = &s
	}
	return rec, nil
}

func number(report []byte, path string) (float64, error) {
	res := gjson.GetBytes(report, path)
	if res.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s is missing or not a number", ErrSchemaMismatch, path)
	}
	return res.Float(), nil
}

func scaleScore(fraction float64) int {
	return int(math.Round(fraction * 100))
}

package lighthouse

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadReport(t *testing.T) map[string]any {
	t.Helper()
	b, err := os.ReadFile("testdata/report.json")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(b, &report))
	return report
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func withScore(t *testing.T, score float64) []byte {
	report := loadReport(t)
	report["categories"].(map[string]any)["performance"].(map[string]any)["score"] = score
	return encode(t, report)
}

func TestAdapt(t *testing.T) {
	rec, err := Adapt(encode(t, loadReport(t)))
	require.NoError(t, err)

	assert.Equal(t, 87, rec.Score)
	assert.Equal(t, 312.5, rec.ResponseTime)
	assert.Equal(t, 1804.2, rec.FCP)
	assert.Equal(t, 3421.9, rec.SI)
	assert.Equal(t, 2650.0, rec.LCP)
	assert.Equal(t, 145.0, rec.TBT)
	assert.Equal(t, 0.041, rec.CLS)
	require.NotNil(t, rec.SEO)
	assert.Equal(t, 92, *rec.SEO)
}

func TestAdapt_ScoreScaling(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		want     int
	}{
		{"perfect score maps to 100", 1.0, 100},
		{"zero", 0, 0},
		{"rounds down", 0.873, 87},
		{"rounds half up", 0.875, 88},
		{"small fraction", 0.004, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Adapt(withScore(t, tt.fraction))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Score)
		})
	}
}

func TestAdapt_MissingAuditIsAnError(t *testing.T) {
	for _, audit := range []string{
		AuditServerResponseTime, AuditFirstContentfulPaint, AuditSpeedIndex,
		AuditLargestContentfulPaint, AuditTotalBlockingTime, AuditCumulativeLayoutShift,
	} {
		t.Run(audit, func(t *testing.T) {
			report := loadReport(t)
			delete(report["audits"].(map[string]any), audit)

			_, err := Adapt(encode(t, report))
			require.ErrorIs(t, err, ErrSchemaMismatch)
			assert.Contains(t, err.Error(), audit)
		})
	}
}

func TestAdapt_MissingPerformanceScore(t *testing.T) {
	report := loadReport(t)
	delete(report["categories"].(map[string]any), "performance")

	_, err := Adapt(encode(t, report))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestAdapt_NullScoreIsAnError(t *testing.T) {
	report := loadReport(t)
	report["categories"].(map[string]any)["performance"].(map[string]any)["score"] = nil

	_, err := Adapt(encode(t, report))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestAdapt_SEOIsOptional(t *testing.T) {
	report := loadReport(t)
	delete(report["categories"].(map[string]any), "seo")

	rec, err := Adapt(encode(t, report))
	require.NoError(t, err)
	assert.Nil(t, rec.SEO)
}

func TestAdapt_InvalidJSON(t *testing.T) {
	_, err := Adapt([]byte("{not json"))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestExtractResult(t *testing.T) {
	body := encode(t, map[string]any{"id": "x", "lighthouseResult": loadReport(t)})
	raw, ok := ExtractResult(body)
	require.True(t, ok)

	rec, err := Adapt(raw)
	require.NoError(t, err)
	assert.Equal(t, 87, rec.Score)

	_, ok = ExtractResult([]byte(`{"id":"x","loadingExperience":{}}`))
	assert.False(t, ok)
	_, ok = ExtractResult([]byte(`{"lighthouseResult":null}`))
	assert.False(t, ok)
}

package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/perfwatch/internal/entity"
)

func newTestMetricsUseCase(metricRepo *fakeMetricRepo, pageRepo *fakePageRepo, now time.Time) *metricsUseCase {
	uc := NewMetricsUseCase(metricRepo, pageRepo).(*metricsUseCase)
	uc.now = fixedClock(now)
	return uc
}

func TestGetAverageMetrics_DefaultRange(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	repo := &fakeMetricRepo{}
	uc := newTestMetricsUseCase(repo, newFakePageRepo(), now)

	_, err := uc.GetAverageMetrics(context.Background(), entity.AggregateQuery{Period: entity.PeriodDaily})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), repo.lastRange.Start)
	assert.Equal(t, now, repo.lastRange.End)
	assert.Equal(t, entity.PeriodDaily, repo.lastPeriod)
}

func TestGetAverageMetrics_ExplicitEndIsInclusiveDay(t *testing.T) {
	repo := &fakeMetricRepo{}
	uc := newTestMetricsUseCase(repo, newFakePageRepo(), time.Now())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	pageID := uuid.NewString()

	_, err := uc.GetAverageMetrics(context.Background(), entity.AggregateQuery{
		Period:    entity.PeriodHourly,
		Scope:     entity.AggregateScope{Kind: entity.ScopePage, Value: pageID},
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, start, repo.lastRange.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 23, 59, 59, 999999000, time.UTC), repo.lastRange.End)
	assert.Equal(t, entity.AggregateScope{Kind: entity.ScopePage, Value: pageID}, repo.lastScope)
}

func TestGetAverageMetrics_ProjectsMetricFilter(t *testing.T) {
	h1 := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	h2 := h1.Add(time.Hour)
	repo := &fakeMetricRepo{points: []*entity.AggregatePoint{
		{PeriodStart: h1, AvgScore: 80, AvgCLS: 0.1},
		{PeriodStart: h2, AvgScore: 90, AvgCLS: 0.2},
	}}
	uc := newTestMetricsUseCase(repo, newFakePageRepo(), time.Now())
	metric := entity.MetricCLS

	series, err := uc.GetAverageMetrics(context.Background(), entity.AggregateQuery{Period: entity.PeriodHourly, MetricFilter: &metric})
	require.NoError(t, err)
	require.Len(t, series.Projected, 2)
	assert.Equal(t, h1, series.Projected[0].At)
	assert.Equal(t, 0.1, series.Projected[0].Value)
	assert.Equal(t, 0.2, series.Projected[1].Value)
	assert.Len(t, series.Points, 2)
}

func TestGetAverageMetrics_InvalidArguments(t *testing.T) {
	uc := newTestMetricsUseCase(&fakeMetricRepo{}, newFakePageRepo(), time.Now())

	queries := []entity.AggregateQuery{
		{Period: "yearly"},
		{Period: entity.PeriodDaily, Scope: entity.AggregateScope{Kind: entity.ScopeChannel, Value: "acme"}},
		{Period: entity.PeriodDaily, Scope: entity.AggregateScope{Kind: entity.ScopeTheme}},
		{Period: entity.PeriodDaily, Scope: entity.AggregateScope{Kind: "region", Value: "eu"}},
	}
	for _, q := range queries {
		_, err := uc.GetAverageMetrics(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidArgument, q)
	}
}

func TestGetPageMetrics_UnknownPage(t *testing.T) {
	uc := newTestMetricsUseCase(&fakeMetricRepo{}, newFakePageRepo(), time.Now())

	_, err := uc.GetPageMetrics(context.Background(), uuid.New(), entity.PageMetricsQuery{})
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestGetPageMetrics_DateFilterCoversWholeDay(t *testing.T) {
	pages := newFakePageRepo()
	page := pages.add(entity.Page{Name: "home", Path: "/", ChannelID: uuid.New()})
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	repo := &fakeMetricRepo{rows: []*entity.Metric{
		{PageID: page.ID, Time: day.Add(-time.Millisecond), Score: 10},
		{PageID: page.ID, Time: day, Score: 20},
		{PageID: page.ID, Time: day.Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond), Score: 30},
		{PageID: page.ID, Time: day.Add(24 * time.Hour), Score: 40},
	}}
	uc := newTestMetricsUseCase(repo, pages, time.Now())

	series, err := uc.GetPageMetrics(context.Background(), page.ID, entity.PageMetricsQuery{StartDate: &day, EndDate: &day})
	require.NoError(t, err)
	require.Len(t, series.Metrics, 2)
	assert.Equal(t, 20, series.Metrics[0].Score)
	assert.Equal(t, 30, series.Metrics[1].Score)
	assert.Nil(t, series.Projected)

	metric := entity.MetricScore
	series, err = uc.GetPageMetrics(context.Background(), page.ID, entity.PageMetricsQuery{Metric: &metric, StartDate: &day, EndDate: &day})
	require.NoError(t, err)
	require.Len(t, series.Projected, 2)
	assert.Equal(t, "time", series.Projected[0].TimeKey)
	assert.Equal(t, 20.0, series.Projected[0].Value)
}

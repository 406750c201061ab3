package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/perfwatch/internal/entity"
	"go.uber.org/zap"
)

var aggregateColumns = []string{
	"period_start", "avg_score", "avg_response_time", "avg_fcp", "avg_si", "avg_lcp", "avg_tbt", "avg_cls",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestMetricRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewMetricRepo(mock, zap.NewNop())

	pageID := uuid.New()
	at := time.Now()
	m := entity.NewMetric(pageID, &entity.MetricRecord{Score: 90, ResponseTime: 120, FCP: 1, SI: 2, LCP: 3, TBT: 4, CLS: 0.1}, at)

	mock.ExpectExec("INSERT INTO metrics").
		WithArgs(m.ID, at, 90, 120.0, 1.0, 2.0, 3.0, 4.0, 0.1, m.SEO, pageID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricRepo_AverageHourlyReadsRawTable(t *testing.T) {
	mock := newMock(t)
	repo := NewMetricRepo(mock, zap.NewNop())

	hour := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	tr := entity.TimeRange{Start: hour.Add(-time.Hour), End: hour.Add(time.Hour)}

	mock.ExpectQuery(`FROM metrics m\s+WHERE`).
		WithArgs(tr.Start, tr.End, "00000000-0000-0000-0000-000000000001").
		WillReturnRows(pgxmock.NewRows(aggregateColumns).
			AddRow(hour, 85.0, 300.0, 1800.0, 3400.0, 2600.0, 150.0, 0.05))

	points, err := repo.Average(context.Background(), entity.PeriodHourly,
		entity.AggregateScope{Kind: entity.ScopePage, Value: "00000000-0000-0000-0000-000000000001"}, tr)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, hour, points[0].PeriodStart)
	assert.Equal(t, 85.0, points[0].AvgScore)
	assert.Equal(t, 0.05, points[0].AvgCLS)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricRepo_AverageFallsBackWhenRollupMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewMetricRepo(mock, zap.NewNop())

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tr := entity.TimeRange{Start: day, End: day.Add(24 * time.Hour)}

	mock.ExpectQuery("FROM metrics_daily m").
		WithArgs(tr.Start, tr.End).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "metrics_daily" does not exist`})
	mock.ExpectQuery(`date_trunc\('day', m.time\)[\s\S]*FROM metrics m`).
		WithArgs(tr.Start, tr.End).
		WillReturnRows(pgxmock.NewRows(aggregateColumns).
			AddRow(day, 70.0, 250.0, 1.0, 2.0, 3.0, 4.0, 0.2))

	points, err := repo.Average(context.Background(), entity.PeriodDaily, entity.AggregateScope{Kind: entity.ScopeGlobal}, tr)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 70.0, points[0].AvgScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricRepo_AverageDoesNotMaskOtherErrors(t *testing.T) {
	mock := newMock(t)
	repo := NewMetricRepo(mock, zap.NewNop())

	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := entity.TimeRange{Start: week, End: week.AddDate(0, 0, 14)}

	mock.ExpectQuery("FROM metrics_weekly m").
		WithArgs(tr.Start, tr.End).
		WillReturnError(&pgconn.PgError{Code: "57014"})

	_, err := repo.Average(context.Background(), entity.PeriodWeekly, entity.AggregateScope{}, tr)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricRepo_ListByPage(t *testing.T) {
	mock := newMock(t)
	repo := NewMetricRepo(mock, zap.NewNop())

	pageID := uuid.New()
	id := uuid.New()
	at := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	tr := entity.TimeRange{Start: at.Add(-time.Hour), End: at.Add(time.Hour)}
	seo := 91

	mock.ExpectQuery("FROM metrics").
		WithArgs(pageID, tr.Start, tr.End).
		WillReturnRows(pgxmock.NewRows([]string{"id", "time", "score", "response_time", "fcp", "si", "lcp", "tbt", "cls", "seo", "page_id"}).
			AddRow(id, at, 88, 200.0, 1.0, 2.0, 3.0, 4.0, 0.01, &seo, pageID))

	metrics, err := repo.ListByPage(context.Background(), pageID, tr)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, id, metrics[0].ID)
	assert.Equal(t, 88, metrics[0].Score)
	require.NotNil(t, metrics[0].SEO)
	assert.Equal(t, 91, *metrics[0].SEO)
	assert.NoError(t, mock.ExpectationsWereMet())
}

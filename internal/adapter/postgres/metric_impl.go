package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"go.uber.org/zap"
)

// MetricRepoImpl provides a concrete implementation for the MetricRepository interface
// using a TimescaleDB hypertable and its continuous aggregates.
type MetricRepoImpl struct {
	db     DBTX
	logger *zap.Logger
}

// NewMetricRepo creates a new instance of MetricRepoImpl.
func NewMetricRepo(db DBTX, logger *zap.Logger) *MetricRepoImpl {
	return &MetricRepoImpl{db: db, logger: logger}
}

// Create appends one sample to the metrics hypertable.
func (r *MetricRepoImpl) Create(ctx context.Context, m *entity.Metric) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO metrics (id, time, score, response_time, fcp, si, lcp, tbt, cls, seo, page_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.Time, m.Score, m.ResponseTime, m.FCP, m.SI, m.LCP, m.TBT, m.CLS, m.SEO, m.PageID,
	)
	return mapError("create metric", err)
}

// ListByPage returns the raw samples of a page inside the inclusive range.
func (r *MetricRepoImpl) ListByPage(ctx context.Context, pageID uuid.UUID, tr entity.TimeRange) ([]*entity.Metric, error) {
	query := `
		SELECT id, time, score, response_time, fcp, si, lcp, tbt, cls, seo, page_id
		FROM metrics
		WHERE page_id = $1 AND time >= $2 AND time <= $3
		ORDER BY time ASC;
	`
	rows, err := r.db.Query(ctx, query, pageID, tr.Start, tr.End)
	if err != nil {
		return nil, mapError("list metrics", err)
	}
	defer rows.Close()

	var metrics []*entity.Metric
	for rows.Next() {
		var m entity.Metric
		if err := rows.Scan(
			&m.ID, &m.Time, &m.Score, &m.ResponseTime, &m.FCP, &m.SI, &m.LCP, &m.TBT, &m.CLS, &m.SEO, &m.PageID,
		); err != nil {
			return nil, mapError("scan metric", err)
		}
		metrics = append(metrics, &m)
	}
	return metrics, mapError("list metrics", rows.Err())
}

// Average returns bucket averages for the period. Coarse periods read the
// matching rollup; when that view does not exist the raw table answers instead.
func (r *MetricRepoImpl) Average(ctx context.Context, period entity.Period, scope entity.AggregateScope, tr entity.TimeRange) ([]*entity.AggregatePoint, error) {
	src, err := rollupSource(period)
	if err != nil {
		return nil, err
	}

	points, err := r.average(ctx, src, scope, tr)
	if err == nil || !src.rollup || !isUndefinedTable(err) {
		return points, err
	}

	r.logger.Warn("Rollup unavailable, falling back to raw metrics",
		zap.String("relation", src.relation),
		zap.String("period", string(period)),
		zap.Error(err),
	)
	raw, err := rawSource(period)
	if err != nil {
		return nil, err
	}
	return r.average(ctx, raw, scope, tr)
}

func (r *MetricRepoImpl) average(ctx context.Context, src aggregateSource, scope entity.AggregateScope, tr entity.TimeRange) ([]*entity.AggregatePoint, error) {
	query, args, err := buildAverageQuery(src, scope, tr)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*entity.AggregatePoint
	for rows.Next() {
		var p entity.AggregatePoint
		if err := rows.Scan(
			&p.PeriodStart, &p.AvgScore, &p.AvgResponseTime, &p.AvgFCP, &p.AvgSI, &p.AvgLCP, &p.AvgTBT, &p.AvgCLS,
		); err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

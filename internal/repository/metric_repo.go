package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
)

// MetricRepository stores metric samples and runs aggregate queries over them.
type MetricRepository interface {
	// Create appends a sample. Rows are never updated.
	Create(ctx context.Context, metric *entity.Metric) error
	// ListByPage returns a page's samples within the inclusive range, oldest first.
	ListByPage(ctx context.Context, pageID uuid.UUID, r entity.TimeRange) ([]*entity.Metric, error)
	// Average returns bucket averages ordered by period start, reading the rollup
	// that matches the period.
	Average(ctx context.Context, period entity.Period, scope entity.AggregateScope, r entity.TimeRange) ([]*entity.AggregatePoint, error)
}

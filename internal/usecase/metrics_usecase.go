package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/pkg/utils"
)

// epochFloor is the start of every range without an explicit start date.
var epochFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// MetricsUseCase answers dashboard queries over collected metrics.
type MetricsUseCase interface {
	GetAverageMetrics(ctx context.Context, q entity.AggregateQuery) (entity.AverageSeries, error)
	GetPageMetrics(ctx context.Context, pageID uuid.UUID, q entity.PageMetricsQuery) (entity.PageSeries, error)
}

type metricsUseCase struct {
	metricRepo repository.MetricRepository
	pageRepo   repository.PageRepository
	now        func() time.Time
}

// NewMetricsUseCase creates a new MetricsUseCase.
func NewMetricsUseCase(metricRepo repository.MetricRepository, pageRepo repository.PageRepository) MetricsUseCase {
	return &metricsUseCase{metricRepo: metricRepo, pageRepo: pageRepo, now: time.Now}
}

// GetAverageMetrics returns bucket averages in ascending period order.
// A metric filter projects the same rows down to one value per bucket.
func (uc *metricsUseCase) GetAverageMetrics(ctx context.Context, q entity.AggregateQuery) (entity.AverageSeries, error) {
	if _, err := entity.ParsePeriod(string(q.Period)); err != nil {
		return entity.AverageSeries{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := validateScope(q.Scope); err != nil {
		return entity.AverageSeries{}, err
	}

	points, err := uc.metricRepo.Average(ctx, q.Period, q.Scope, uc.timeRange(q.StartDate, q.EndDate))
	if err != nil {
		return entity.AverageSeries{}, fmt.Errorf("failed to aggregate metrics: %w", err)
	}

	series := entity.AverageSeries{Points: points}
	if q.MetricFilter != nil {
		series.Projected = entity.ProjectAverages(points, *q.MetricFilter)
	}
	return series, nil
}

// GetPageMetrics lists the raw samples of an existing page.
func (uc *metricsUseCase) GetPageMetrics(ctx context.Context, pageID uuid.UUID, q entity.PageMetricsQuery) (entity.PageSeries, error) {
	if _, err := uc.pageRepo.FindByID(ctx, pageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.PageSeries{}, ErrResourceNotFound
		}
		return entity.PageSeries{}, fmt.Errorf("failed to load page %s: %w", pageID, err)
	}

	rows, err := uc.metricRepo.ListByPage(ctx, pageID, uc.timeRange(q.StartDate, q.EndDate))
	if err != nil {
		return entity.PageSeries{}, fmt.Errorf("failed to list metrics of page %s: %w", pageID, err)
	}

	series := entity.PageSeries{Metrics: rows}
	if q.Metric != nil {
		series.Projected = entity.ProjectMetrics(rows, *q.Metric)
	}
	return series, nil
}

// timeRange applies the defaults: start at epochFloor, end now. An explicit
// end date covers its whole day.
func (uc *metricsUseCase) timeRange(start, end *time.Time) entity.TimeRange {
	r := entity.TimeRange{Start: epochFloor, End: uc.now()}
	if start != nil {
		r.Start = *start
	}
	if end != nil {
		r.End = utils.EndOfDay(*end)
	}
	return r
}

func validateScope(s entity.AggregateScope) error {
	switch s.Kind {
	case entity.ScopeGlobal, "":
		return nil
	case entity.ScopeTheme:
		if s.Value == "" {
			return fmt.Errorf("%w: theme must not be empty", ErrInvalidArgument)
		}
		return nil
	case entity.ScopeChannel, entity.ScopePage, entity.ScopeProvider:
		if _, err := uuid.Parse(s.Value); err != nil {
			return fmt.Errorf("%w: %s id %q is not a uuid", ErrInvalidArgument, s.Kind, s.Value)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown scope %q", ErrInvalidArgument, s.Kind)
}

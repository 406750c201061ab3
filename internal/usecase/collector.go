package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/lighthouse"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/pkg/metrics"
	"go.uber.org/zap"
)

// Collector handles one collection job: audit the page and store the sample.
type Collector interface {
	Handle(ctx context.Context, job *entity.Job) error
}

type collectorUseCase struct {
	auditRepo  repository.AuditRepository
	metricRepo repository.MetricRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewCollector creates a new Collector use case.
func NewCollector(auditRepo repository.AuditRepository, metricRepo repository.MetricRepository, logger *zap.Logger) Collector {
	return &collectorUseCase{
		auditRepo:  auditRepo,
		metricRepo: metricRepo,
		logger:     logger.Named("collector"),
		now:        time.Now,
	}
}

// Handle returns an error only for failures the queue should record.
// An audit without data and a page deleted since dispatch both complete the job.
func (uc *collectorUseCase) Handle(ctx context.Context, job *entity.Job) error {
	queue := string(job.Queue)
	log := uc.logger.With(
		zap.String("job_id", job.ID),
		zap.String("page_url", job.Payload.PageURL),
		zap.String("page_id", job.Payload.PageID),
	)

	pageID, err := uuid.Parse(job.Payload.PageID)
	if err != nil {
		metrics.JobsProcessedTotal.WithLabelValues(queue, "failure").Inc()
		return fmt.Errorf("invalid page id in job %s: %w", job.ID, err)
	}

	start := time.Now()
	report, err := uc.auditRepo.Run(ctx, job.Payload.PageURL)
	metrics.AuditDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())

	if errors.Is(err, repository.ErrNoAuditData) {
		log.Warn("Audit returned no lighthouse result, nothing stored")
		metrics.JobsProcessedTotal.WithLabelValues(queue, "no_data").Inc()
		return nil
	}
	if err != nil {
		log.Error("Audit failed", zap.Error(err))
		metrics.JobsProcessedTotal.WithLabelValues(queue, "failure").Inc()
		return fmt.Errorf("failed to audit %s: %w", job.Payload.PageURL, err)
	}

	rec, err := lighthouse.Adapt(report)
	if err != nil {
		log.Error("Audit report could not be adapted", zap.Error(err))
		metrics.JobsProcessedTotal.WithLabelValues(queue, "failure").Inc()
		return err
	}

	metric := entity.NewMetric(pageID, rec, uc.now())
	if err := uc.metricRepo.Create(ctx, metric); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Page no longer exists, dropping sample")
			metrics.JobsProcessedTotal.WithLabelValues(queue, "no_data").Inc()
			return nil
		}
		log.Error("Failed to store metric", zap.Error(err))
		metrics.JobsProcessedTotal.WithLabelValues(queue, "failure").Inc()
		return fmt.Errorf("failed to store metric for page %s: %w", pageID, err)
	}

	log.Info("Metric collected", zap.Int("score", rec.Score), zap.Float64("lcp", rec.LCP))
	metrics.JobsProcessedTotal.WithLabelValues(queue, "success").Inc()
	return nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/pkg/metrics"
	"github.com/user/perfwatch/pkg/utils"
	"go.uber.org/zap"
)

// Dispatcher resolves the pages of a scope and enqueues one collection job per page.
type Dispatcher interface {
	Dispatch(ctx context.Context, scope entity.DispatchScope) (*entity.DispatchReport, error)
}

type dispatcherUseCase struct {
	channelRepo repository.ChannelRepository
	pageRepo    repository.PageRepository
	queues      QueueSet
	logger      *zap.Logger
}

// NewDispatcher creates a new Dispatcher use case.
func NewDispatcher(
	channelRepo repository.ChannelRepository,
	pageRepo repository.PageRepository,
	queues QueueSet,
	logger *zap.Logger,
) Dispatcher {
	return &dispatcherUseCase{
		channelRepo: channelRepo,
		pageRepo:    pageRepo,
		queues:      queues,
		logger:      logger.Named("dispatcher"),
	}
}

// Dispatch enqueues jobs for scope. Structural problems with the requested
// channel or page are returned; per-page problems only show up in the report.
func (uc *dispatcherUseCase) Dispatch(ctx context.Context, scope entity.DispatchScope) (*entity.DispatchReport, error) {
	report := &entity.DispatchReport{}
	var err error
	switch scope.Kind {
	case entity.DispatchAllActive:
		err = uc.dispatchAll(ctx, report)
	case entity.DispatchChannel:
		err = uc.dispatchChannel(ctx, report, scope.ChannelID)
	case entity.DispatchPage:
		err = uc.dispatchPage(ctx, report, scope.ChannelID, scope.PageID)
	default:
		err = fmt.Errorf("unknown dispatch scope %d", scope.Kind)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Dispatch finished",
		zap.Int("total", report.Total),
		zap.Int("enqueued", report.Enqueued),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (uc *dispatcherUseCase) dispatchAll(ctx context.Context, report *entity.DispatchReport) error {
	channels, err := uc.channelRepo.ListActiveWithHome(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active channels: %w", err)
	}
	for _, item := range channels {
		ch := &item.Channel
		switch {
		case ch.InternalLink == "":
			uc.skip(report, ch, nil, "channel has no internal link")
		case item.HomePage == nil:
			uc.skip(report, ch, nil, "channel has no home page")
		default:
			uc.enqueue(ctx, report, ch, item.HomePage)
		}
	}
	return nil
}

func (uc *dispatcherUseCase) dispatchChannel(ctx context.Context, report *entity.DispatchReport, channelID uuid.UUID) error {
	ch, err := uc.requireChannel(ctx, channelID)
	if err != nil {
		return err
	}
	pages, err := uc.pageRepo.ListByChannel(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("failed to list pages of channel %s: %w", ch.ID, err)
	}
	if len(pages) == 0 {
		return ErrChannelHasNoPages
	}
	for _, page := range pages {
		if page.Path == "" {
			uc.skip(report, ch, page, "page has no path")
			continue
		}
		uc.enqueue(ctx, report, ch, page)
	}
	return nil
}

func (uc *dispatcherUseCase) dispatchPage(ctx context.Context, report *entity.DispatchReport, channelID, pageID uuid.UUID) error {
	ch, err := uc.requireChannel(ctx, channelID)
	if err != nil {
		return err
	}
	page, err := uc.pageRepo.FindByID(ctx, pageID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResourceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load page %s: %w", pageID, err)
	}
	if page.ChannelID != ch.ID {
		return ErrResourceNotFound
	}
	uc.enqueue(ctx, report, ch, page)
	return nil
}

// requireChannel loads a channel that can be collected right now.
func (uc *dispatcherUseCase) requireChannel(ctx context.Context, id uuid.UUID) (*entity.Channel, error) {
	ch, err := uc.channelRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel %s: %w", id, err)
	}
	if !ch.Active {
		return nil, ErrChannelInactive
	}
	if ch.InternalLink == "" {
		return nil, ErrChannelMissingURL
	}
	return ch, nil
}

func (uc *dispatcherUseCase) enqueue(ctx context.Context, report *entity.DispatchReport, ch *entity.Channel, page *entity.Page) {
	pageID := page.ID
	outcome := entity.DispatchOutcome{ChannelID: ch.ID, PageID: &pageID, Queue: ch.QueueName()}

	queue, err := uc.queues.For(ch)
	if err != nil {
		uc.fail(report, outcome, err)
		return
	}

	job := &entity.Job{
		Payload: entity.JobPayload{
			PageURL:   utils.JoinURL(ch.InternalLink, page.Path),
			PageID:    page.ID.String(),
			ChannelID: ch.ID.String(),
		},
	}
	added, err := queue.Add(ctx, job)
	switch {
	case err != nil:
		uc.fail(report, outcome, err)
	case !added:
		outcome.Status = entity.OutcomeSkipped
		outcome.Reason = "job already queued"
		uc.record(report, outcome)
	default:
		outcome.Status = entity.OutcomeEnqueued
		outcome.JobID = job.ID
		uc.record(report, outcome)
	}
}

func (uc *dispatcherUseCase) skip(report *entity.DispatchReport, ch *entity.Channel, page *entity.Page, reason string) {
	outcome := entity.DispatchOutcome{
		ChannelID: ch.ID,
		Queue:     ch.QueueName(),
		Status:    entity.OutcomeSkipped,
		Reason:    reason,
	}
	if page != nil {
		id := page.ID
		outcome.PageID = &id
	}
	uc.logger.Warn("Skipping page in dispatch",
		zap.String("channel_id", ch.ID.String()),
		zap.String("channel", ch.Name),
		zap.String("reason", reason),
	)
	uc.record(report, outcome)
}

func (uc *dispatcherUseCase) fail(report *entity.DispatchReport, outcome entity.DispatchOutcome, err error) {
	outcome.Status = entity.OutcomeFailed
	outcome.Reason = err.Error()
	uc.logger.Error("Failed to enqueue collection job",
		zap.String("channel_id", outcome.ChannelID.String()),
		zap.Stringer("page_id", outcome.PageID),
		zap.Error(err),
	)
	uc.record(report, outcome)
}

func (uc *dispatcherUseCase) record(report *entity.DispatchReport, outcome entity.DispatchOutcome) {
	report.Record(outcome)
	metrics.DispatchOutcomesTotal.WithLabelValues(string(outcome.Queue), string(outcome.Status)).Inc()
}

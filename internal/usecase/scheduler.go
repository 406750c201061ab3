package usecase

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/user/perfwatch/internal/entity"
	"go.uber.org/zap"
)

// Scheduler triggers the periodic dispatch and keeps recurring registrations in sync.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	recurring  RecurringUseCase
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewScheduler validates both cron expressions and registers the entries.
func NewScheduler(dispatcher Dispatcher, recurring RecurringUseCase, dispatchCron, syncCron string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		recurring:  recurring,
		logger:     logger.Named("scheduler"),
	}
	if _, err := s.cron.AddFunc(dispatchCron, s.dispatchAll); err != nil {
		return nil, fmt.Errorf("invalid dispatch cron %q: %w", dispatchCron, err)
	}
	if _, err := s.cron.AddFunc(syncCron, s.syncRecurring); err != nil {
		return nil, fmt.Errorf("invalid recurring sync cron %q: %w", syncCron, err)
	}
	return s, nil
}

// Start syncs recurring registrations once, then runs the cron entries until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.syncRecurring()
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Cron entry scheduled", zap.Int("entry_id", int(e.ID)), zap.Time("next_run", e.Next))
	}
}

// Stop waits for running entries to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) dispatchAll() {
	report, err := s.dispatcher.Dispatch(s.ctx, entity.AllActiveChannels())
	if err != nil {
		s.logger.Error("Scheduled dispatch failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled dispatch done", zap.Int("jobs_count", report.Enqueued), zap.Int("total", report.Total))
}

func (s *Scheduler) syncRecurring() {
	if err := s.recurring.Sync(s.ctx); err != nil {
		s.logger.Error("Recurring job sync failed", zap.Error(err))
	}
}

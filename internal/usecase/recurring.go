package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"github.com/user/perfwatch/pkg/utils"
	"go.uber.org/zap"
)

// RecurringPlan assigns cron patterns to channels. Reference channels share one
// pattern. Client channels are sorted by id and split into chunks; positions in
// a chunk are spread over the hour and chunks over a 3-hour cycle.
type RecurringPlan struct {
	ReferencePattern string
	ChunkSize        int
}

// Patterns returns the pattern of every channel, keyed by channel id.
func (p RecurringPlan) Patterns(channels []*entity.Channel) map[uuid.UUID]string {
	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 150
	}

	patterns := make(map[uuid.UUID]string, len(channels))
	var clients []*entity.Channel
	for _, ch := range channels {
		if ch.IsReference {
			patterns[ch.ID] = p.ReferencePattern
			continue
		}
		clients = append(clients, ch)
	}

	sort.Slice(clients, func(i, j int) bool {
		return bytes.Compare(clients[i].ID[:], clients[j].ID[:]) < 0
	})
	for i, ch := range clients {
		chunk, pos := i/chunkSize, i%chunkSize
		patterns[ch.ID] = fmt.Sprintf("%d %d-23/3 * * *", pos*60/chunkSize, chunk%3)
	}
	return patterns
}

// RepeatKey is the deterministic registration key of a channel's recurring job.
func RepeatKey(channelID uuid.UUID) string {
	return utils.HashKey("channel", channelID.String())
}

// RecurringUseCase keeps the queues' recurring registrations in line with the channels.
type RecurringUseCase interface {
	// Sync registers every collectable channel and removes registrations of all others.
	Sync(ctx context.Context) error
	// SyncChannel re-registers one channel after it changed.
	SyncChannel(ctx context.Context, channelID uuid.UUID) error
	// RemoveChannel drops the channel's registration from every queue. Missing ones are ignored.
	RemoveChannel(ctx context.Context, channelID uuid.UUID) error
}

type recurringUseCase struct {
	channelRepo repository.ChannelRepository
	queues      QueueSet
	plan        RecurringPlan
	logger      *zap.Logger
}

// NewRecurringUseCase creates a new RecurringUseCase.
func NewRecurringUseCase(channelRepo repository.ChannelRepository, queues QueueSet, plan RecurringPlan, logger *zap.Logger) RecurringUseCase {
	return &recurringUseCase{
		channelRepo: channelRepo,
		queues:      queues,
		plan:        plan,
		logger:      logger.Named("recurring"),
	}
}

// collectable returns the active channels that can be audited, with their patterns.
func (uc *recurringUseCase) collectable(ctx context.Context) ([]*entity.ChannelWithHome, map[uuid.UUID]string, error) {
	items, err := uc.channelRepo.ListActiveWithHome(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list active channels: %w", err)
	}
	var (
		eligible []*entity.ChannelWithHome
		channels []*entity.Channel
	)
	for _, item := range items {
		if item.InternalLink == "" || item.HomePage == nil {
			continue
		}
		eligible = append(eligible, item)
		channels = append(channels, &item.Channel)
	}
	return eligible, uc.plan.Patterns(channels), nil
}

func (uc *recurringUseCase) Sync(ctx context.Context) error {
	eligible, patterns, err := uc.collectable(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[entity.QueueName]map[string]*entity.RepeatDefinition, len(uc.queues))
	for name := range uc.queues {
		wanted[name] = map[string]*entity.RepeatDefinition{}
	}
	for _, item := range eligible {
		def := definition(item, patterns[item.ID])
		if set, ok := wanted[item.QueueName()]; ok {
			set[def.Key] = def
		}
	}

	var errs []error
	registered, removed := 0, 0
	for name, queue := range uc.queues {
		existing, err := queue.Repeatables(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s repeatables: %w", name, err))
			continue
		}
		current := make(map[string]*entity.RepeatDefinition, len(existing))
		for _, def := range existing {
			current[def.Key] = def
			if _, keep := wanted[name][def.Key]; keep {
				continue
			}
			if _, err := queue.RemoveRepeatable(ctx, def.Key); err != nil {
				errs = append(errs, fmt.Errorf("remove %s repeatable %s: %w", name, def.Key, err))
				continue
			}
			removed++
		}
		for key, def := range wanted[name] {
			// Re-registering an unchanged definition would push back its next run.
			if prev, ok := current[key]; ok && prev.Pattern == def.Pattern && prev.Payload == def.Payload {
				continue
			}
			if err := queue.AddRepeatable(ctx, def); err != nil {
				errs = append(errs, fmt.Errorf("register %s repeatable %s: %w", name, key, err))
				continue
			}
			registered++
		}
	}

	uc.logger.Info("Recurring jobs synced",
		zap.Int("channels", len(eligible)),
		zap.Int("registered", registered),
		zap.Int("removed", removed),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

func (uc *recurringUseCase) SyncChannel(ctx context.Context, channelID uuid.UUID) error {
	if err := uc.RemoveChannel(ctx, channelID); err != nil {
		return err
	}
	eligible, patterns, err := uc.collectable(ctx)
	if err != nil {
		return err
	}
	for _, item := range eligible {
		if item.ID != channelID {
			continue
		}
		queue, err := uc.queues.For(&item.Channel)
		if err != nil {
			return err
		}
		def := definition(item, patterns[item.ID])
		if err := queue.AddRepeatable(ctx, def); err != nil {
			return fmt.Errorf("failed to register recurring job for channel %s: %w", channelID, err)
		}
		uc.logger.Info("Recurring job registered",
			zap.String("channel_id", channelID.String()),
			zap.String("queue", string(queue.Name())),
			zap.String("pattern", def.Pattern),
		)
	}
	return nil
}

func (uc *recurringUseCase) RemoveChannel(ctx context.Context, channelID uuid.UUID) error {
	key := RepeatKey(channelID)
	for name, queue := range uc.queues {
		removed, err := queue.RemoveRepeatable(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to remove recurring job of channel %s from %s: %w", channelID, name, err)
		}
		if removed {
			uc.logger.Info("Recurring job removed",
				zap.String("channel_id", channelID.String()),
				zap.String("queue", string(name)),
			)
		}
	}
	return nil
}

func definition(item *entity.ChannelWithHome, pattern string) *entity.RepeatDefinition {
	return &entity.RepeatDefinition{
		Key:     RepeatKey(item.ID),
		Pattern: pattern,
		Payload: entity.JobPayload{
			PageURL:   utils.JoinURL(item.InternalLink, item.HomePage.Path),
			PageID:    item.HomePage.ID.String(),
			ChannelID: item.ID.String(),
		},
	}
}

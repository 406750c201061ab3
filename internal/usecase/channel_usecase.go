package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"go.uber.org/zap"
)

// ChannelUseCase manages channels and keeps their recurring collection registered.
type ChannelUseCase interface {
	Create(ctx context.Context, ch *entity.Channel) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Channel, error)
	List(ctx context.Context, filter entity.ChannelFilter) ([]*entity.Channel, error)
	Update(ctx context.Context, id uuid.UUID, upd entity.ChannelUpdate) (*entity.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type channelUseCase struct {
	channelRepo repository.ChannelRepository
	recurring   RecurringUseCase
	logger      *zap.Logger
}

// NewChannelUseCase creates a new ChannelUseCase.
func NewChannelUseCase(channelRepo repository.ChannelRepository, recurring RecurringUseCase, logger *zap.Logger) ChannelUseCase {
	return &channelUseCase{channelRepo: channelRepo, recurring: recurring, logger: logger.Named("channels")}
}

func (uc *channelUseCase) Create(ctx context.Context, ch *entity.Channel) error {
	if err := uc.channelRepo.Create(ctx, ch); err != nil {
		return translateWriteError(err, ErrChannelAlreadyExists)
	}
	return nil
}

func (uc *channelUseCase) Get(ctx context.Context, id uuid.UUID) (*entity.Channel, error) {
	ch, err := uc.channelRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateReadError(err)
	}
	return ch, nil
}

func (uc *channelUseCase) List(ctx context.Context, filter entity.ChannelFilter) ([]*entity.Channel, error) {
	channels, err := uc.channelRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// Update applies a partial edit. Changing active or is_reference moves the
// channel's recurring job to match.
func (uc *channelUseCase) Update(ctx context.Context, id uuid.UUID, upd entity.ChannelUpdate) (*entity.Channel, error) {
	if upd.Empty() {
		return nil, ErrNoDataProvided
	}
	ch, err := uc.channelRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateReadError(err)
	}

	before := *ch
	upd.Apply(ch)
	if err := uc.channelRepo.Update(ctx, ch); err != nil {
		return nil, translateWriteError(err, ErrChannelAlreadyExists)
	}

	if before.Active != ch.Active || before.IsReference != ch.IsReference || before.InternalLink != ch.InternalLink {
		if err := uc.recurring.SyncChannel(ctx, ch.ID); err != nil {
			uc.logger.Error("Failed to resync recurring job", zap.String("channel_id", ch.ID.String()), zap.Error(err))
			return nil, err
		}
	}
	return ch, nil
}

// Delete removes the recurring job first, then the channel with its pages and metrics.
func (uc *channelUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := uc.channelRepo.FindByID(ctx, id); err != nil {
		return translateReadError(err)
	}
	if err := uc.recurring.RemoveChannel(ctx, id); err != nil {
		return err
	}
	if err := uc.channelRepo.Delete(ctx, id); err != nil {
		return translateReadError(err)
	}
	return nil
}

// translateReadError maps repository lookups onto use case errors.
func translateReadError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResourceNotFound
	}
	return err
}

// translateWriteError maps a unique violation to conflict and a missing
// referenced row to not found.
func translateWriteError(err, conflict error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return conflict
	case errors.Is(err, repository.ErrNotFound):
		return ErrResourceNotFound
	}
	return err
}

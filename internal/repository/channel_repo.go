package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
)

// ChannelRepository defines the persistence contract for channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *entity.Channel) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Channel, error)
	List(ctx context.Context, filter entity.ChannelFilter) ([]*entity.Channel, error)
	// ListActiveWithHome returns every active channel joined with its "/" page, if any.
	ListActiveWithHome(ctx context.Context) ([]*entity.ChannelWithHome, error)
	Update(ctx context.Context, channel *entity.Channel) error
	// Delete removes the channel; pages and metrics go with it.
	Delete(ctx context.Context, id uuid.UUID) error
}

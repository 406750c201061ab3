package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
)

// PageRepository defines the persistence contract for pages.
type PageRepository interface {
	Create(ctx context.Context, page *entity.Page) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Page, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]*entity.Page, error)
	Update(ctx context.Context, page *entity.Page) error
	Delete(ctx context.Context, id uuid.UUID) error
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
)

// ProviderRepository defines the persistence contract for providers.
type ProviderRepository interface {
	Create(ctx context.Context, provider *entity.Provider) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error)
	List(ctx context.Context) ([]*entity.Provider, error)
	Update(ctx context.Context, provider *entity.Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
}

package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
)

// ProviderUseCase manages providers.
type ProviderUseCase interface {
	Create(ctx context.Context, p *entity.Provider) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Provider, error)
	List(ctx context.Context) ([]*entity.Provider, error)
	Update(ctx context.Context, id uuid.UUID, upd entity.ProviderUpdate) (*entity.Provider, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type providerUseCase struct {
	providerRepo repository.ProviderRepository
}

// NewProviderUseCase creates a new ProviderUseCase.
func NewProviderUseCase(providerRepo repository.ProviderRepository) ProviderUseCase {
	return &providerUseCase{providerRepo: providerRepo}
}

func (uc *providerUseCase) Create(ctx context.Context, p *entity.Provider) error {
	if err := uc.providerRepo.Create(ctx, p); err != nil {
		return translateWriteError(err, ErrProviderAlreadyExists)
	}
	return nil
}

func (uc *providerUseCase) Get(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	p, err := uc.providerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateReadError(err)
	}
	return p, nil
}

func (uc *providerUseCase) List(ctx context.Context) ([]*entity.Provider, error) {
	providers, err := uc.providerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (uc *providerUseCase) Update(ctx context.Context, id uuid.UUID, upd entity.ProviderUpdate) (*entity.Provider, error) {
	if upd.Empty() {
		return nil, ErrNoDataProvided
	}
	p, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(p)
	if err := uc.providerRepo.Update(ctx, p); err != nil {
		return nil, translateWriteError(err, ErrProviderAlreadyExists)
	}
	return p, nil
}

func (uc *providerUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	if err := uc.providerRepo.Delete(ctx, id); err != nil {
		return translateReadError(err)
	}
	return nil
}

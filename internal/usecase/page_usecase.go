package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
	"go.uber.org/zap"
)

// PageUseCase manages the pages of a channel.
type PageUseCase interface {
	Create(ctx context.Context, channelID uuid.UUID, page *entity.Page) error
	List(ctx context.Context, channelID uuid.UUID) ([]*entity.Page, error)
	Get(ctx context.Context, channelID, pageID uuid.UUID) (*entity.Page, error)
	Update(ctx context.Context, channelID, pageID uuid.UUID, upd entity.PageUpdate) (*entity.Page, error)
	Delete(ctx context.Context, channelID, pageID uuid.UUID) error
}

type pageUseCase struct {
	channelRepo repository.ChannelRepository
	pageRepo    repository.PageRepository
	recurring   RecurringUseCase
	logger      *zap.Logger
}

// NewPageUseCase creates a new PageUseCase.
func NewPageUseCase(channelRepo repository.ChannelRepository, pageRepo repository.PageRepository, recurring RecurringUseCase, logger *zap.Logger) PageUseCase {
	return &pageUseCase{channelRepo: channelRepo, pageRepo: pageRepo, recurring: recurring, logger: logger.Named("pages")}
}

// Create adds a page. A new home page makes the channel collectable, so its
// recurring job is registered.
func (uc *pageUseCase) Create(ctx context.Context, channelID uuid.UUID, page *entity.Page) error {
	if _, err := uc.channelRepo.FindByID(ctx, channelID); err != nil {
		return translateReadError(err)
	}
	page.ChannelID = channelID
	if err := uc.pageRepo.Create(ctx, page); err != nil {
		return translateWriteError(err, ErrPageAlreadyExists)
	}
	if page.Path == entity.HomePath {
		uc.resync(ctx, channelID)
	}
	return nil
}

func (uc *pageUseCase) List(ctx context.Context, channelID uuid.UUID) ([]*entity.Page, error) {
	if _, err := uc.channelRepo.FindByID(ctx, channelID); err != nil {
		return nil, translateReadError(err)
	}
	pages, err := uc.pageRepo.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// Get returns the page only when it belongs to the channel.
func (uc *pageUseCase) Get(ctx context.Context, channelID, pageID uuid.UUID) (*entity.Page, error) {
	page, err := uc.pageRepo.FindByID(ctx, pageID)
	if err != nil {
		return nil, translateReadError(err)
	}
	if page.ChannelID != channelID {
		return nil, ErrResourceNotFound
	}
	return page, nil
}

func (uc *pageUseCase) Update(ctx context.Context, channelID, pageID uuid.UUID, upd entity.PageUpdate) (*entity.Page, error) {
	if upd.Empty() {
		return nil, ErrNoDataProvided
	}
	page, err := uc.Get(ctx, channelID, pageID)
	if err != nil {
		return nil, err
	}
	oldPath := page.Path
	upd.Apply(page)
	if err := uc.pageRepo.Update(ctx, page); err != nil {
		return nil, translateWriteError(err, ErrPageAlreadyExists)
	}
	if oldPath != page.Path && (oldPath == entity.HomePath || page.Path == entity.HomePath) {
		uc.resync(ctx, channelID)
	}
	return page, nil
}

func (uc *pageUseCase) Delete(ctx context.Context, channelID, pageID uuid.UUID) error {
	page, err := uc.Get(ctx, channelID, pageID)
	if err != nil {
		return err
	}
	if err := uc.pageRepo.Delete(ctx, pageID); err != nil {
		return translateReadError(err)
	}
	if page.Path == entity.HomePath {
		uc.resync(ctx, channelID)
	}
	return nil
}

// resync is best effort; the scheduler's periodic sync repairs a failure.
func (uc *pageUseCase) resync(ctx context.Context, channelID uuid.UUID) {
	if err := uc.recurring.SyncChannel(ctx, channelID); err != nil {
		uc.logger.Warn("Failed to resync recurring job", zap.String("channel_id", channelID.String()), zap.Error(err))
	}
}

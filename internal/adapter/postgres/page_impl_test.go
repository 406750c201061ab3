package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
)

func TestPageRepo_CreateDuplicatePath(t *testing.T) {
	mock := newMock(t)
	repo := NewPageRepo(mock)

	channelID := uuid.New()
	mock.ExpectQuery("INSERT INTO pages").
		WithArgs(pgxmock.AnyArg(), "home", "/", channelID, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "pages_channel_path_key"})

	err := repo.Create(context.Background(), &entity.Page{Name: "home", Path: "/", ChannelID: channelID})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPageRepo_CreateUnknownChannel(t *testing.T) {
	mock := newMock(t)
	repo := NewPageRepo(mock)

	channelID := uuid.New()
	mock.ExpectQuery("INSERT INTO pages").
		WithArgs(pgxmock.AnyArg(), "home", "/", channelID, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "pages_channel_id_fkey"})

	err := repo.Create(context.Background(), &entity.Page{Name: "home", Path: "/", ChannelID: channelID})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPageRepo_ListByChannel(t *testing.T) {
	mock := newMock(t)
	repo := NewPageRepo(mock)
	channelID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM pages WHERE channel_id = ").
		WithArgs(channelID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "path", "channel_id", "provider_id", "created_at", "updated_at"}).
			AddRow(uuid.New(), "home", "/", channelID, (*uuid.UUID)(nil), now, now).
			AddRow(uuid.New(), "shop", "/shop", channelID, (*uuid.UUID)(nil), now, now))

	pages, err := repo.ListByChannel(context.Background(), channelID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/shop", pages[1].Path)
	assert.NoError(t, mock.ExpectationsWereMet())
}

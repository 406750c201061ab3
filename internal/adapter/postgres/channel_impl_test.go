package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/perfwatch/internal/entity"
	"github.com/user/perfwatch/internal/repository"
)

var channelRowColumns = []string{
	"id", "name", "domain", "internal_link", "theme", "active", "is_reference", "provider_id", "created_at", "updated_at",
}

func TestChannelRepo_CreateAssignsID(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO channels").
		WithArgs(pgxmock.AnyArg(), "Acme", "acme.com", "https://acme.com", "retail", true, false, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	ch := &entity.Channel{Name: "Acme", Domain: "acme.com", InternalLink: "https://acme.com", Theme: "retail", Active: true}
	require.NoError(t, repo.Create(context.Background(), ch))
	assert.NotEqual(t, uuid.Nil, ch.ID)
	assert.Equal(t, now, ch.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelRepo_CreateDuplicateLink(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)

	mock.ExpectQuery("INSERT INTO channels").
		WithArgs(pgxmock.AnyArg(), "", "", "https://acme.com", "", false, false, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "channels_internal_link_key"})

	err := repo.Create(context.Background(), &entity.Channel{InternalLink: "https://acme.com"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Contains(t, err.Error(), "channels_internal_link_key")
}

func TestChannelRepo_FindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("FROM channels c WHERE c.id = ").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestChannelRepo_ListFilters(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)
	theme := "retail"
	ref := true
	now := time.Now()
	id := uuid.New()

	mock.ExpectQuery(`WHERE c.theme = \$1 AND c.is_reference = \$2`).
		WithArgs("retail", true).
		WillReturnRows(pgxmock.NewRows(channelRowColumns).
			AddRow(id, "Acme", "acme.com", "https://acme.com", "retail", true, true, (*uuid.UUID)(nil), now, now))

	channels, err := repo.List(context.Background(), entity.ChannelFilter{Theme: &theme, IsReference: &ref})
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, id, channels[0].ID)
	assert.True(t, channels[0].IsReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelRepo_ListActiveWithHome(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)
	now := time.Now()

	withHome, withoutHome := uuid.New(), uuid.New()
	homeID := uuid.New()
	homeName, homePath := "home", "/"

	cols := append(append([]string{}, channelRowColumns...),
		"page_id", "page_name", "path", "page_provider_id", "page_created_at", "page_updated_at")
	mock.ExpectQuery("LEFT JOIN pages p ON p.channel_id = c.id AND p.path = ").
		WithArgs("/").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(withHome, "Acme", "acme.com", "https://acme.com", "retail", true, false, (*uuid.UUID)(nil), now, now,
				&homeID, &homeName, &homePath, (*uuid.UUID)(nil), &now, &now).
			AddRow(withoutHome, "Bare", "bare.com", "https://bare.com", "", true, true, (*uuid.UUID)(nil), now, now,
				(*uuid.UUID)(nil), (*string)(nil), (*string)(nil), (*uuid.UUID)(nil), (*time.Time)(nil), (*time.Time)(nil)))

	items, err := repo.ListActiveWithHome(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].HomePage)
	assert.Equal(t, homeID, items[0].HomePage.ID)
	assert.Equal(t, "/", items[0].HomePage.Path)
	assert.Equal(t, withHome, items[0].HomePage.ChannelID)
	assert.Nil(t, items[1].HomePage)
	assert.True(t, items[1].IsReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelRepo_DeleteMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewChannelRepo(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM channels").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), id)
	require.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

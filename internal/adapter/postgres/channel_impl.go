package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/user/perfwatch/internal/entity"
)

const channelColumns = `c.id, c.name, c.domain, COALESCE(c.internal_link, ''), c.theme, c.active, c.is_reference, c.provider_id, c.created_at, c.updated_at`

// ChannelRepoImpl provides a concrete implementation for the ChannelRepository interface using PostgreSQL.
type ChannelRepoImpl struct {
	db DBTX
}

// NewChannelRepo creates a new instance of ChannelRepoImpl.
func NewChannelRepo(db DBTX) *ChannelRepoImpl {
	return &ChannelRepoImpl{db: db}
}

func (r *ChannelRepoImpl) Create(ctx context.Context, ch *entity.Channel) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	query := `
		INSERT INTO channels (id, name, domain, internal_link, theme, active, is_reference, provider_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		ch.ID, ch.Name, ch.Domain, ch.InternalLink, ch.Theme, ch.Active, ch.IsReference, ch.ProviderID,
	).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	return mapError("create channel", err)
}

func (r *ChannelRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c WHERE c.id = $1;`
	ch, err := scanChannel(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("find channel", err)
	}
	return ch, nil
}

func (r *ChannelRepoImpl) List(ctx context.Context, f entity.ChannelFilter) ([]*entity.Channel, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Theme != nil {
		add("c.theme = $%d", *f.Theme)
	}
	if f.ProviderID != nil {
		add("c.provider_id = $%d", *f.ProviderID)
	}
	if f.IsReference != nil {
		add("c.is_reference = $%d", *f.IsReference)
	}
	if f.Active != nil {
		add("c.active = $%d", *f.Active)
	}

	query := `SELECT ` + channelColumns + ` FROM channels c`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY c.created_at, c.id;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list channels", err)
	}
	defer rows.Close()

	var channels []*entity.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, mapError("scan channel", err)
		}
		channels = append(channels, ch)
	}
	return channels, mapError("list channels", rows.Err())
}

// ListActiveWithHome returns active channels left-joined with their "/" page.
func (r *ChannelRepoImpl) ListActiveWithHome(ctx context.Context) ([]*entity.ChannelWithHome, error) {
	query := `
		SELECT ` + channelColumns + `,
			p.id, p.name, p.path, p.provider_id, p.created_at, p.updated_at
		FROM channels c
		LEFT JOIN pages p ON p.channel_id = c.id AND p.path = $1
		WHERE c.active
		ORDER BY c.created_at, c.id;
	`
	rows, err := r.db.Query(ctx, query, entity.HomePath)
	if err != nil {
		return nil, mapError("list active channels", err)
	}
	defer rows.Close()

	var result []*entity.ChannelWithHome
	for rows.Next() {
		var (
			item                     entity.ChannelWithHome
			pageID                   *uuid.UUID
			pageName, path           *string
			pageProvider             *uuid.UUID
			pageCreated, pageUpdated *time.Time
		)
		ch := &item.Channel
		if err := rows.Scan(
			&ch.ID, &ch.Name, &ch.Domain, &ch.InternalLink, &ch.Theme, &ch.Active, &ch.IsReference,
			&ch.ProviderID, &ch.CreatedAt, &ch.UpdatedAt,
			&pageID, &pageName, &path, &pageProvider, &pageCreated, &pageUpdated,
		); err != nil {
			return nil, mapError("scan active channel", err)
		}
		if pageID != nil {
			item.HomePage = &entity.Page{
				ID:         *pageID,
				Name:       deref(pageName),
				Path:       deref(path),
				ChannelID:  ch.ID,
				ProviderID: pageProvider,
			}
			if pageCreated != nil {
				item.HomePage.CreatedAt = *pageCreated
			}
			if pageUpdated != nil {
				item.HomePage.UpdatedAt = *pageUpdated
			}
		}
		result = append(result, &item)
	}
	return result, mapError("list active channels", rows.Err())
}

func (r *ChannelRepoImpl) Update(ctx context.Context, ch *entity.Channel) error {
	query := `
		UPDATE channels SET
			name = $2, domain = $3, internal_link = NULLIF($4, ''), theme = $5,
			active = $6, is_reference = $7, provider_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		ch.ID, ch.Name, ch.Domain, ch.InternalLink, ch.Theme, ch.Active, ch.IsReference, ch.ProviderID,
	).Scan(&ch.UpdatedAt)
	return mapError("update channel", err)
}

// Delete removes a channel. Pages and metrics cascade in the schema.
func (r *ChannelRepoImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM channels WHERE id = $1;`, id)
	if err != nil {
		return mapError("delete channel", err)
	}
	return expectAffected("delete channel", tag)
}

func scanChannel(row pgx.Row) (*entity.Channel, error) {
	var ch entity.Channel
	err := row.Scan(
		&ch.ID, &ch.Name, &ch.Domain, &ch.InternalLink, &ch.Theme, &ch.Active, &ch.IsReference,
		&ch.ProviderID, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/user/perfwatch/internal/entity"
)

const pageColumns = `id, name, path, channel_id, provider_id, created_at, updated_at`

// PageRepoImpl provides a concrete implementation for the PageRepository interface using PostgreSQL.
type PageRepoImpl struct {
	db DBTX
}

// NewPageRepo creates a new instance of PageRepoImpl.
func NewPageRepo(db DBTX) *PageRepoImpl {
	return &PageRepoImpl{db: db}
}

// Create inserts a page. (channel_id, path) is unique.
func (r *PageRepoImpl) Create(ctx context.Context, p *entity.Page) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO pages (id, name, path, channel_id, provider_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Path, p.ChannelID, p.ProviderID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError("create page", err)
}

func (r *PageRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE id = $1;`
	p, err := scanPage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("find page", err)
	}
	return p, nil
}

func (r *PageRepoImpl) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]*entity.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE channel_id = $1 ORDER BY path;`
	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return nil, mapError("list pages", err)
	}
	defer rows.Close()

	var pages []*entity.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, mapError("scan page", err)
		}
		pages = append(pages, p)
	}
	return pages, mapError("list pages", rows.Err())
}

func (r *PageRepoImpl) Update(ctx context.Context, p *entity.Page) error {
	query := `
		UPDATE pages SET name = $2, path = $3, provider_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Path, p.ProviderID).Scan(&p.UpdatedAt)
	return mapError("update page", err)
}

func (r *PageRepoImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pages WHERE id = $1;`, id)
	if err != nil {
		return mapError("delete page", err)
	}
	return expectAffected("delete page", tag)
}

func scanPage(row pgx.Row) (*entity.Page, error) {
	var p entity.Page
	if err := row.Scan(&p.ID, &p.Name, &p.Path, &p.ChannelID, &p.ProviderID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

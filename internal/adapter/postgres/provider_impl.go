package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/user/perfwatch/internal/entity"
)

const providerColumns = `id, name, website, slug, description, created_at, updated_at`

// ProviderRepoImpl provides a concrete implementation for the ProviderRepository interface using PostgreSQL.
type ProviderRepoImpl struct {
	db DBTX
}

// NewProviderRepo creates a new instance of ProviderRepoImpl.
func NewProviderRepo(db DBTX) *ProviderRepoImpl {
	return &ProviderRepoImpl{db: db}
}

func (r *ProviderRepoImpl) Create(ctx context.Context, p *entity.Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	query := `
		INSERT INTO providers (id, name, website, slug, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Website, p.Slug, p.Description).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapError("create provider", err)
}

func (r *ProviderRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1;`
	p, err := scanProvider(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("find provider", err)
	}
	return p, nil
}

func (r *ProviderRepoImpl) List(ctx context.Context) ([]*entity.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY name;`)
	if err != nil {
		return nil, mapError("list providers", err)
	}
	defer rows.Close()

	var providers []*entity.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, mapError("scan provider", err)
		}
		providers = append(providers, p)
	}
	return providers, mapError("list providers", rows.Err())
}

func (r *ProviderRepoImpl) Update(ctx context.Context, p *entity.Provider) error {
	query := `
		UPDATE providers SET name = $2, website = $3, slug = $4, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Website, p.Slug, p.Description).Scan(&p.UpdatedAt)
	return mapError("update provider", err)
}

func (r *ProviderRepoImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM providers WHERE id = $1;`, id)
	if err != nil {
		return mapError("delete provider", err)
	}
	return expectAffected("delete provider", tag)
}

func scanProvider(row pgx.Row) (*entity.Provider, error) {
	var p entity.Provider
	if err := row.Scan(&p.ID, &p.Name, &p.Website, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

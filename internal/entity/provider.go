package entity

import (
	"time"

	"github.com/google/uuid"
)

// Provider mirrors the `providers` PostgreSQL table schema. Slug is unique.
type Provider struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Website     string    `json:"website"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProviderUpdate struct {
	Name        *string
	Website     *string
	Slug        *string
	Description *string
}

func (u ProviderUpdate) Empty() bool {
	return u.Name == nil && u.Website == nil && u.Slug == nil && u.Description == nil
}

func (u ProviderUpdate) Apply(p *Provider) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Website != nil {
		p.Website = *u.Website
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
}

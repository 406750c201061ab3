package entity

import (
	"time"

	"github.com/google/uuid"
)

// Page mirrors the `pages` PostgreSQL table schema. Path is unique within a channel.
type Page struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	ChannelID  uuid.UUID  `json:"channel_id"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// PageUpdate carries a partial edit. Nil fields are left untouched.
type PageUpdate struct {
	Name       *string
	Path       *string
	ProviderID *uuid.UUID
}

func (u PageUpdate) Empty() bool {
	return u.Name == nil && u.Path == nil && u.ProviderID == nil
}

func (u PageUpdate) Apply(p *Page) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Path != nil {
		p.Path = *u.Path
	}
	if u.ProviderID != nil {
		id := *u.ProviderID
		p.ProviderID = &id
	}
}

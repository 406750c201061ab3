package entity

import (
	"time"

	"github.com/google/uuid"
)

// HomePath is the page path a channel's recurring collection targets.
const HomePath = "/"

// Channel mirrors the `channels` PostgreSQL table schema.
type Channel struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Domain       string     `json:"domain"`
	InternalLink string     `json:"internal_link"` // unique
	Theme        string     `json:"theme"`
	Active       bool       `json:"active"`
	IsReference  bool       `json:"is_reference"`
	ProviderID   *uuid.UUID `json:"provider_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// QueueName reports which collection queue serves the channel.
func (c *Channel) QueueName() QueueName {
	if c.IsReference {
		return QueueReference
	}
	return QueueClient
}

// ChannelWithHome pairs an active channel with its "/" page, which may be missing.
type ChannelWithHome struct {
	Channel
	HomePage *Page
}

// ChannelFilter narrows channel listings. Nil fields are ignored.
type ChannelFilter struct {
	Theme       *string
	ProviderID  *uuid.UUID
	IsReference *bool
	Active      *bool
}

// ChannelUpdate carries a partial edit. Nil fields are left untouched.
type ChannelUpdate struct {
	Name         *string
	Domain       *string
	InternalLink *string
	Theme        *string
	Active       *bool
	IsReference  *bool
	ProviderID   *uuid.UUID
}

// Empty reports whether the update carries no fields.
func (u ChannelUpdate) Empty() bool {
	return u.Name == nil && u.Domain == nil && u.InternalLink == nil && u.Theme == nil &&
		u.Active == nil && u.IsReference == nil && u.ProviderID == nil
}

// Apply copies the set fields onto c.
func (u ChannelUpdate) Apply(c *Channel) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Domain != nil {
		c.Domain = *u.Domain
	}
	if u.InternalLink != nil {
		c.InternalLink = *u.InternalLink
	}
	if u.Theme != nil {
		c.Theme = *u.Theme
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
	if u.IsReference != nil {
		c.IsReference = *u.IsReference
	}
	if u.ProviderID != nil {
		id := *u.ProviderID
		c.ProviderID = &id
	}
}

package core

import (
	"encoding/json"
	"time"
)

// User represents a member of the community
//
// This is the "identity" - who someone is. The Admin flag on this row is the
// only source of authorization truth; sessions and tokens merely cache it.
type User struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Email        *string         `json:"email,omitempty"`
	DiscordID    *string         `json:"discordId,omitempty"`
	WorldAnvilID *string         `json:"worldAnvilId,omitempty"`
	Avatar       *string         `json:"avatar,omitempty"`
	Admin        bool            `json:"admin"`
	Data         json.RawMessage `json:"data,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ExternalID returns the id the user is known by at the given provider.
func (u *User) ExternalID(provider string) string {
	var id *string
	switch provider {
	case ProviderDiscord:
		id = u.DiscordID
	case ProviderWorldAnvil:
		id = u.WorldAnvilID
	}
	if id == nil {
		return ""
	}
	return *id
}

// SetExternalID mirrors a linked provider id onto the user row. An empty id clears it.
func (u *User) SetExternalID(provider, id string) {
	var value *string
	if id != "" {
		value = &id
	}
	switch provider {
	case ProviderDiscord:
		u.DiscordID = value
	case ProviderWorldAnvil:
		u.WorldAnvilID = value
	}
}

// AdminUser is the narrowed view handed to admin-only handlers
type AdminUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Admin bool    `json:"admin"`
}

// UserFilter narrows an admin user listing
type UserFilter struct {
	Search        string
	Admin         *bool
	HasDiscord    *bool
	HasWorldAnvil *bool
	Limit         int
	Offset        int
}

// UserList is a page of users
type UserList struct {
	Users   []*User `json:"users"`
	Total   int     `json:"total"`
	HasMore bool    `json:"hasMore"`
}

// UserInput carries the admin-editable fields of a user. Nil fields are left unchanged on update.
type UserInput struct {
	Name         *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Slug         *string         `json:"slug" validate:"omitempty,max=100"`
	Email        *string         `json:"email" validate:"omitempty,email"`
	DiscordID    *string         `json:"discordId"`
	WorldAnvilID *string         `json:"worldAnvilId"`
	Avatar       *string         `json:"avatar" validate:"omitempty,url"`
	Admin        *bool           `json:"admin"`
	Data         json.RawMessage `json:"data"`
}

// Caller identifies who is making a request, with the admin flag as loaded from the user row
type Caller struct {
	UserID string
	Admin  bool
}

// CanAccess reports whether the caller may act on resources owned by ownerID.
func (c Caller) CanAccess(ownerID string) bool {
	return c.Admin || c.UserID == ownerID
}

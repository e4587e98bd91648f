package core

import "time"

// Account represents a linked external identity or provider credential
//
// This is the "credential" - how fumble talks to a provider on a user's behalf.
type Account struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	ProviderID   string     `json:"providerId"` // "discord", "worldanvil", "openai"
	AccountID    string     `json:"accountId"`
	Username     string     `json:"username,omitempty"`
	AccessToken  *string    `json:"-"` // Never expose in JSON
	RefreshToken *string    `json:"-"` // Never expose in JSON
	Scope        string     `json:"scope,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// LinkStatus reports which providers a user has linked
type LinkStatus struct {
	Provider  string     `json:"provider"`
	Linked    bool       `json:"linked"`
	AccountID string     `json:"accountId,omitempty"`
	Username  string     `json:"username,omitempty"`
	LinkedAt  *time.Time `json:"linkedAt,omitempty"`
}

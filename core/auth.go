package core

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderDiscord    = "discord"
	ProviderWorldAnvil = "worldanvil"
	ProviderOpenAI     = "openai"
)

// SSOProvider is the capability every external identity provider implements.
// Providers are registered with the AuthService at runtime.
type SSOProvider interface {
	Name() string
	GetAuthorizationURL(state string) string
	ExchangeCodeForToken(ctx context.Context, code string) (*ProviderToken, error)
	GetUserProfile(ctx context.Context, accessToken string) (*SSOProfile, error)
	RefreshToken(ctx context.Context, refreshToken string) (*ProviderToken, error)
	RevokeToken(ctx context.Context, token string) error
}

// ProviderToken is the token set returned by a provider's token endpoint
type ProviderToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// SSOProfile is a provider's view of the signed-in user
type SSOProfile struct {
	ID           string         `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email,omitempty"`
	DisplayName  string         `json:"displayName"`
	Avatar       string         `json:"avatar,omitempty"`
	Provider     string         `json:"provider"`
	ProviderData map[string]any `json:"providerData,omitempty"`
}

// TokenPayload is the public view of a verified fumble token
type TokenPayload struct {
	UserID       string    `json:"userId"`
	DiscordID    string    `json:"discordId,omitempty"`
	WorldAnvilID string    `json:"worldAnvilId,omitempty"`
	IssuedAt     time.Time `json:"iat"`
	ExpiresAt    time.Time `json:"exp"`
}

// TokenConfig controls fumble token issuance
type TokenConfig struct {
	TTL    time.Duration
	Issuer string
}

func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		TTL:    7 * 24 * time.Hour,
		Issuer: "fumble",
	}
}

// IssuedToken is a freshly signed fumble token
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifiedToken pairs a verified token with the user it references
type VerifiedToken struct {
	Payload *TokenPayload `json:"payload"`
	User    *User         `json:"user"`
}

// SSOResult is the outcome of a successful provider callback
type SSOResult struct {
	User      *User       `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Created   bool        `json:"created"`
	Profile   *SSOProfile `json:"profile"`
}

// SSO callback steps, used to tag SSOError
const (
	StepProvider = "provider"
	StepState    = "state"
	StepExchange = "exchange"
	StepProfile  = "profile"
	StepUser     = "user"
	StepAccount  = "account"
	StepToken    = "token"
)

// SSOError tags a failed provider callback with the step that failed.
type SSOError struct {
	Provider string
	Step     string
	Err      error
}

func (e *SSOError) Error() string {
	return fmt.Sprintf("%s sso %s: %v", e.Provider, e.Step, e.Err)
}

func (e *SSOError) Unwrap() error {
	return e.Err
}

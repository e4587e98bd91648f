package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/oauth"
)

const (
	DefaultAPIBase = "https://discord.com/api"
	cdnBase        = "https://cdn.discordapp.com"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// GuildID, when set, asks Discord to offer joining this guild on consent
	GuildID    string
	APIBase    string
	HTTPClient *http.Client
}

// Provider signs users in with Discord
type Provider struct {
	*oauth.Base
	apiBase string
	guildID string
}

var _ core.SSOProvider = (*Provider)(nil)

func NewProvider(cfg ProviderConfig) *Provider {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify", "email"}
		if cfg.GuildID != "" {
			scopes = append(scopes, "guilds.members.read")
		}
	}

	return &Provider{
		Base: oauth.New(core.ProviderDiscord, oauth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			AuthURL:      apiBase + "/oauth2/authorize",
			TokenURL:     apiBase + "/oauth2/token",
			RevokeURL:    apiBase + "/oauth2/token/revoke",
			Scopes:       scopes,
			HTTPClient:   cfg.HTTPClient,
		}),
		apiBase: apiBase,
		guildID: cfg.GuildID,
	}
}

func (p *Provider) GetAuthorizationURL(state string) string {
	if p.guildID == "" {
		return p.AuthCodeURL(state, nil)
	}
	return p.AuthCodeURL(state, map[string]string{
		"guild_id":    p.guildID,
		"permissions": "0",
	})
}

type discordUser struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	GlobalName    *string `json:"global_name"`
	Avatar        *string `json:"avatar"`
	Email         *string `json:"email"`
	Verified      bool    `json:"verified"`
	Locale        string  `json:"locale"`
}

func (p *Provider) GetUserProfile(ctx context.Context, accessToken string) (*core.SSOProfile, error) {
	var u discordUser
	if err := p.GetJSON(ctx, p.apiBase+"/users/@me", oauth.BearerHeader(accessToken), &u); err != nil {
		return nil, fmt.Errorf("failed to fetch discord profile: %w", err)
	}
	if u.ID == "" {
		return nil, core.ErrMissingProfileID
	}

	username := u.Username
	if u.Discriminator != "" && u.Discriminator != "0" {
		username = u.Username + "#" + u.Discriminator
	}

	displayName := username
	if u.GlobalName != nil && *u.GlobalName != "" {
		displayName = *u.GlobalName
	}

	profile := &core.SSOProfile{
		ID:          u.ID,
		Username:    username,
		DisplayName: displayName,
		Provider:    core.ProviderDiscord,
		ProviderData: map[string]any{
			"discriminator": u.Discriminator,
			"verified":      u.Verified,
			"locale":        u.Locale,
		},
	}
	if u.Email != nil {
		profile.Email = *u.Email
	}
	if u.Avatar != nil && *u.Avatar != "" {
		profile.Avatar = AvatarURL(u.ID, *u.Avatar)
	}
	if p.guildID != "" {
		member, err := p.IsGuildMember(ctx, accessToken, p.guildID)
		if err != nil {
			return nil, fmt.Errorf("failed to check guild membership: %w", err)
		}
		profile.ProviderData["guildMember"] = member
	}
	return profile, nil
}

// AvatarURL builds the CDN URL for an avatar hash; animated hashes get a gif.
func AvatarURL(userID, hash string) string {
	ext := "png"
	if strings.HasPrefix(hash, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s", cdnBase, userID, hash, ext)
}

// IsGuildMember reports whether the token's owner belongs to guildID.
func (p *Provider) IsGuildMember(ctx context.Context, accessToken, guildID string) (bool, error) {
	var member map[string]any
	err := p.GetJSON(ctx, p.apiBase+"/v10/users/@me/guilds/"+guildID+"/member", oauth.BearerHeader(accessToken), &member)
	if errors.Is(err, core.ErrUpstreamNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

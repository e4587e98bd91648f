package worldanvil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/oauth"
	"github.com/tidwall/gjson"
)

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AppKey       string
	APIBase      string
	AuthURL      string // defaults to {APIBase}/oauth/authorize
	TokenURL     string // defaults to {APIBase}/oauth/token
	Scopes       []string
	HTTPClient   *http.Client
}

// Provider signs users in with WorldAnvil
type Provider struct {
	*oauth.Base
	apiBase string
	appKey  string
}

var _ core.SSOProvider = (*Provider)(nil)

func NewProvider(cfg ProviderConfig) *Provider {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = apiBase + "/oauth/authorize"
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = apiBase + "/oauth/token"
	}

	return &Provider{
		// WorldAnvil has no revocation endpoint
		Base: oauth.New(core.ProviderWorldAnvil, oauth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			AuthURL:      authURL,
			TokenURL:     tokenURL,
			Scopes:       cfg.Scopes,
			HTTPClient:   cfg.HTTPClient,
		}),
		apiBase: apiBase,
		appKey:  cfg.AppKey,
	}
}

func (p *Provider) GetUserProfile(ctx context.Context, accessToken string) (*core.SSOProfile, error) {
	headers := oauth.BearerHeader(accessToken)
	headers.Set("x-application-key", p.appKey)

	var raw json.RawMessage
	if err := p.GetJSON(ctx, p.apiBase+"/identity", headers, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch world anvil profile: %w", err)
	}

	identity, err := parseIdentity(raw)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(raw)
	displayName := res.Get("displayName").String()
	if displayName == "" {
		displayName = identity.Username
	}

	return &core.SSOProfile{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       res.Get("email").String(),
		DisplayName: displayName,
		Avatar:      res.Get("avatar.url").String(),
		Provider:    core.ProviderWorldAnvil,
		ProviderData: map[string]any{
			"membership": res.Get("membership").String(),
		},
	}, nil
}

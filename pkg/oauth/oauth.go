// Package oauth holds the authorization-code plumbing shared by fumble's SSO providers.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lborres/fumble/core"
	"golang.org/x/oauth2"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	RevokeURL    string // optional
	Scopes       []string
	HTTPClient   *http.Client
}

// Base implements the token half of core.SSOProvider. Providers embed it and
// add GetUserProfile.
type Base struct {
	name      string
	conf      *oauth2.Config
	revokeURL string
	client    *http.Client
}

func New(name string, cfg Config) *Base {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Base{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		revokeURL: cfg.RevokeURL,
		client:    client,
	}
}

func (b *Base) Name() string {
	return b.name
}

// Client is the HTTP client used for every provider call
func (b *Base) Client() *http.Client {
	return b.client
}

// AuthCodeURL builds the consent URL, adding extra query parameters.
func (b *Base) AuthCodeURL(state string, extra map[string]string) string {
	opts := make([]oauth2.AuthCodeOption, 0, len(extra))
	for k, v := range extra {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return b.conf.AuthCodeURL(state, opts...)
}

func (b *Base) GetAuthorizationURL(state string) string {
	return b.AuthCodeURL(state, nil)
}

func (b *Base) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.client)
}

func (b *Base) ExchangeCodeForToken(ctx context.Context, code string) (*core.ProviderToken, error) {
	if code == "" {
		return nil, core.ErrMissingCode
	}

	tok, err := b.conf.Exchange(b.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return toProviderToken(tok), nil
}

func (b *Base) RefreshToken(ctx context.Context, refreshToken string) (*core.ProviderToken, error) {
	if refreshToken == "" {
		return nil, core.ErrNoRefreshToken
	}

	src := b.conf.TokenSource(b.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return toProviderToken(tok), nil
}

// RevokeToken posts token to the revocation endpoint. Providers without one succeed silently.
func (b *Base) RevokeToken(ctx context.Context, token string) error {
	if b.revokeURL == "" {
		return nil
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", b.conf.ClientID)
	form.Set("client_secret", b.conf.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: revoke returned %d", core.ErrUpstream, resp.StatusCode)
	}
	return nil
}

// GetJSON performs an authenticated GET and decodes the JSON body into out.
func (b *Base) GetJSON(ctx context.Context, endpoint string, headers http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.ErrUpstreamNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", core.ErrUpstream, b.name, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// BearerHeader is a convenience for GetJSON
func BearerHeader(accessToken string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+accessToken)
	return h
}

func toProviderToken(tok *oauth2.Token) *core.ProviderToken {
	scope, _ := tok.Extra("scope").(string)
	return &core.ProviderToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		RefreshToken: tok.RefreshToken,
		Scope:        scope,
		ExpiresAt:    tok.Expiry,
	}
}

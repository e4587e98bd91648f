package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/cache"
	"github.com/lborres/fumble/pkg/crypto"
	"github.com/lborres/fumble/pkg/metrics"
)

// authStore is the slice of storage the AuthService needs
type authStore interface {
	core.UserStorage
	core.AccountStorage
}

type AuthConfig struct {
	Secret   string
	Token    core.TokenConfig
	StateTTL time.Duration
	// AdminDiscordIDs are promoted to admin when they sign in with Discord
	AdminDiscordIDs []string

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// tokenClaims is the signed payload of a fumble token
type tokenClaims struct {
	UserID       string `json:"userId"`
	DiscordID    string `json:"discordId,omitempty"`
	WorldAnvilID string `json:"worldAnvilId,omitempty"`
	jwt.RegisteredClaims
}

// Caller-chosen states live apart from generated ones so a flood of them can
// only evict each other.
const (
	issuedStateLimit   = 10000
	suppliedStateLimit = 1000
)

// AuthService ties local users to external identities and issues fumble tokens.
type AuthService struct {
	store     authStore
	providers *ProviderRegistry
	vault     *Vault
	states    *cache.InMemoryCache[string]
	supplied  *cache.InMemoryCache[string]
	key       []byte
	token     core.TokenConfig
	admins    map[string]bool
	suffixes  *crypto.NanoID
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(store authStore, providers *ProviderRegistry, vault *Vault, cfg AuthConfig) (*AuthService, error) {
	key, err := crypto.DeriveKey(cfg.Secret, crypto.PurposeToken, 32)
	if err != nil {
		return nil, err
	}
	suffixes, err := crypto.NewNanoID(crypto.SlugAlphabet)
	if err != nil {
		return nil, err
	}

	token := cfg.Token
	defaults := core.DefaultTokenConfig()
	if token.TTL <= 0 {
		token.TTL = defaults.TTL
	}
	if token.Issuer == "" {
		token.Issuer = defaults.Issuer
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if providers == nil {
		providers, _ = NewProviderRegistry()
	}

	admins := make(map[string]bool, len(cfg.AdminDiscordIDs))
	for _, id := range cfg.AdminDiscordIDs {
		admins[id] = true
	}

	return &AuthService{
		store:     store,
		providers: providers,
		vault:     vault,
		states:    cache.NewInMemoryCache[string](core.CacheConfig{TTL: cfg.StateTTL, MaxSize: issuedStateLimit}),
		supplied:  cache.NewInMemoryCache[string](core.CacheConfig{TTL: cfg.StateTTL, MaxSize: suppliedStateLimit}),
		key:       key,
		token:     token,
		admins:    admins,
		suffixes:  suffixes,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// ============================================
// PROVIDER REGISTRY
// ============================================

func (s *AuthService) RegisterProvider(p core.SSOProvider) error {
	return s.providers.Register(p)
}

func (s *AuthService) UnregisterProvider(name string) bool {
	return s.providers.Unregister(name)
}

func (s *AuthService) Provider(name string) (core.SSOProvider, error) {
	p, ok := s.providers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderNotRegistered, name)
	}
	return p, nil
}

func (s *AuthService) Providers() []string {
	return s.providers.Names()
}

// ============================================
// SSO FLOW
// ============================================

// GetAuthorizationURL returns the consent URL for provider and the state it
// carries. An empty state is replaced with a random one. The state is
// remembered for a single callback.
func (s *AuthService) GetAuthorizationURL(provider, state string) (string, string, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return "", "", err
	}

	states := s.supplied
	key := crypto.HashToken(state)
	if state == "" {
		pair, err := crypto.GenerateHashedToken(crypto.DefaultTokenLength)
		if err != nil {
			return "", "", fmt.Errorf("failed to generate state: %w", err)
		}
		states, state, key = s.states, pair.Token, pair.Hash
	}
	if err := states.Set(key, provider); err != nil {
		return "", "", err
	}

	return p.GetAuthorizationURL(state), state, nil
}

// consumeState checks that state was issued for provider and burns it.
// Callbacks without a state are accepted.
func (s *AuthService) consumeState(provider, state string) error {
	if state == "" {
		return nil
	}
	key := crypto.HashToken(state)
	issuedFor, err := s.states.Take(key)
	if errors.Is(err, core.ErrCacheNotFound) {
		issuedFor, err = s.supplied.Take(key)
	}
	if err != nil || issuedFor != provider {
		return core.ErrInvalidState
	}
	return nil
}

// exchange runs the provider half of a callback: state, code exchange and profile.
func (s *AuthService) exchange(ctx context.Context, provider, code, state string) (*core.ProviderToken, *core.SSOProfile, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepProvider, Err: core.ErrProviderNotRegistered}
	}
	if err := s.consumeState(provider, state); err != nil {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepState, Err: err}
	}
	if code == "" {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepExchange, Err: core.ErrMissingCode}
	}

	token, err := p.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepExchange, Err: err}
	}

	profile, err := p.GetUserProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepProfile, Err: err}
	}
	if profile == nil || profile.ID == "" {
		return nil, nil, &core.SSOError{Provider: provider, Step: core.StepProfile, Err: core.ErrMissingProfileID}
	}

	return token, profile, nil
}

// HandleSSOCallback completes a sign-in: it exchanges code, loads the
// provider profile, upserts the local user and linked account, and issues a
// fumble token. Failures are returned as *core.SSOError.
func (s *AuthService) HandleSSOCallback(ctx context.Context, provider, code, state string) (*core.SSOResult, error) {
	result, err := s.handleSSOCallback(ctx, provider, code, state)

	outcome := "ok"
	var ssoErr *core.SSOError
	if errors.As(err, &ssoErr) {
		outcome = ssoErr.Step
	}
	s.metrics.SSO(provider, outcome)

	if err != nil {
		s.logger.Warn("sso callback failed", "provider", provider, "error", err)
		return nil, err
	}
	s.logger.Info("sso sign-in", "provider", provider, "user_id", result.User.ID, "created", result.Created)
	return result, nil
}

func (s *AuthService) handleSSOCallback(ctx context.Context, provider, code, state string) (*core.SSOResult, error) {
	token, profile, err := s.exchange(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}

	acct, err := s.store.GetAccountByProvider(ctx, provider, profile.ID)
	if err != nil && !errors.Is(err, core.ErrAccountNotFound) {
		return nil, &core.SSOError{Provider: provider, Step: core.StepUser, Err: err}
	}

	user, created, err := s.upsertUser(ctx, provider, profile, acct)
	if err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepUser, Err: err}
	}

	if acct == nil {
		if acct, err = s.userAccount(ctx, user.ID, provider); err != nil {
			return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: err}
		}
		acct.AccountID = profile.ID
	}
	if err := s.storeAccount(ctx, acct, profile, token); err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: err}
	}

	issued, err := s.IssueToken(user)
	if err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepToken, Err: err}
	}

	return &core.SSOResult{
		User:      user,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Created:   created,
		Profile:   profile,
	}, nil
}

// upsertUser loads the user behind acct and syncs it with profile. Without an
// account it falls back to the user row already carrying the provider id, and
// creates a new user when the external identity is unknown.
func (s *AuthService) upsertUser(ctx context.Context, provider string, profile *core.SSOProfile, acct *core.Account) (*core.User, bool, error) {
	if acct != nil {
		user, err := s.store.GetUserByID(ctx, acct.UserID)
		if err != nil {
			return nil, false, err
		}
		if err := s.syncUser(ctx, user, provider, profile); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	user, err := s.store.GetUserByExternalID(ctx, provider, profile.ID)
	switch {
	case err == nil:
		if err := s.syncUser(ctx, user, provider, profile); err != nil {
			return nil, false, err
		}
		return user, false, nil
	case !errors.Is(err, core.ErrUserNotFound):
		return nil, false, err
	}

	user, err = s.newUser(provider, profile)
	if err != nil {
		return nil, false, err
	}

	for attempt := 0; ; attempt++ {
		err = s.store.CreateUser(ctx, user)
		switch {
		case err == nil:
			return user, true, nil
		case errors.Is(err, core.ErrEmailTaken) && user.Email != nil:
			// The email already belongs to another member; keep the new user without it.
			s.logger.Warn("sso email already in use, creating user without email", "provider", provider)
			user.Email = nil
		case errors.Is(err, core.ErrSlugTaken) && attempt < 3:
			if user.Slug, err = s.userSlug(profile); err != nil {
				return nil, false, err
			}
		default:
			return nil, false, err
		}
	}
}

func (s *AuthService) newUser(provider string, profile *core.SSOProfile) (*core.User, error) {
	slug, err := s.userSlug(profile)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &core.User{
		ID:        uuid.NewString(),
		Name:      displayName(profile),
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if profile.Email != "" {
		user.Email = &profile.Email
	}
	if profile.Avatar != "" {
		user.Avatar = &profile.Avatar
	}
	user.SetExternalID(provider, profile.ID)
	if provider == core.ProviderDiscord && s.admins[profile.ID] {
		user.Admin = true
	}
	return user, nil
}

// syncUser applies profile to user and saves it. A profile email held by
// another member leaves the stored email unchanged.
func (s *AuthService) syncUser(ctx context.Context, user *core.User, provider string, profile *core.SSOProfile) error {
	previous := user.Email
	s.syncProfile(user, provider, profile)

	err := s.store.UpdateUser(ctx, user)
	if errors.Is(err, core.ErrEmailTaken) && profile.Email != "" {
		s.logger.Warn("sso email already in use, keeping stored email", "provider", provider, "user_id", user.ID)
		user.Email = previous
		err = s.store.UpdateUser(ctx, user)
	}
	return err
}

func (s *AuthService) syncProfile(user *core.User, provider string, profile *core.SSOProfile) {
	if name := displayName(profile); name != "" {
		user.Name = name
	}
	if profile.Email != "" {
		user.Email = &profile.Email
	}
	if profile.Avatar != "" {
		user.Avatar = &profile.Avatar
	}
	user.SetExternalID(provider, profile.ID)
	if provider == core.ProviderDiscord && s.admins[profile.ID] {
		user.Admin = true
	}
	user.UpdatedAt = s.now()
}

func displayName(profile *core.SSOProfile) string {
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	return profile.Username
}

// userSlug is the slugified username plus a random suffix
func (s *AuthService) userSlug(profile *core.SSOProfile) (string, error) {
	suffix, err := s.suffixes.Generate(6)
	if err != nil {
		return "", err
	}
	base := slugify(profile.Username)
	if base == "" {
		base = slugify(profile.DisplayName)
	}
	if base == "" {
		base = "user"
	}
	return base + "-" + suffix, nil
}

func (s *AuthService) storeAccount(ctx context.Context, acct *core.Account, profile *core.SSOProfile, token *core.ProviderToken) error {
	acct.Username = profile.Username
	acct.Scope = token.Scope
	acct.ExpiresAt = nil
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		acct.ExpiresAt = &expiresAt
	}
	return s.vault.Store(ctx, acct, token.AccessToken, token.RefreshToken)
}

// userAccount returns the user's account for provider, or a fresh one when the
// user has none yet.
func (s *AuthService) userAccount(ctx context.Context, userID, provider string) (*core.Account, error) {
	acct, err := s.store.GetAccountByUserAndProvider(ctx, userID, provider)
	if errors.Is(err, core.ErrAccountNotFound) {
		return &core.Account{UserID: userID, ProviderID: provider}, nil
	}
	return acct, err
}

// LinkSSOAccount attaches the external identity behind code to an already
// signed-in user.
func (s *AuthService) LinkSSOAccount(ctx context.Context, userID, provider, code, state string) (*core.User, error) {
	token, profile, err := s.exchange(ctx, provider, code, state)
	if err != nil {
		return nil, err
	}

	acct, err := s.store.GetAccountByProvider(ctx, provider, profile.ID)
	switch {
	case errors.Is(err, core.ErrAccountNotFound):
		acct, err = s.userAccount(ctx, userID, provider)
		if err != nil {
			return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: err}
		}
		// Relinking replaces whichever identity the user had before.
		acct.AccountID = profile.ID
	case err != nil:
		return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: err}
	case acct.UserID != userID:
		return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: core.ErrAccountLinkedElsewhere}
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepUser, Err: err}
	}
	user.SetExternalID(provider, profile.ID)
	if user.Avatar == nil && profile.Avatar != "" {
		user.Avatar = &profile.Avatar
	}
	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepUser, Err: err}
	}

	if err := s.storeAccount(ctx, acct, profile, token); err != nil {
		return nil, &core.SSOError{Provider: provider, Step: core.StepAccount, Err: err}
	}

	s.logger.Info("sso account linked", "provider", provider, "user_id", userID)
	return user, nil
}

// UnlinkProvider removes the user's linked account for provider. Revocation at
// the provider is best effort.
func (s *AuthService) UnlinkProvider(ctx context.Context, userID, provider string) error {
	acct, err := s.store.GetAccountByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return err
	}

	if p, ok := s.providers.Get(provider); ok {
		if token, _, err := s.vault.AccessToken(ctx, userID, provider); err == nil {
			if err := p.RevokeToken(ctx, token); err != nil {
				s.logger.Warn("failed to revoke provider token", "provider", provider, "user_id", userID, "error", err)
			}
		}
	}

	if err := s.store.DeleteAccount(ctx, acct.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.ExternalID(provider) != "" {
		user.SetExternalID(provider, "")
		user.UpdatedAt = s.now()
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
	}
	return nil
}

// RefreshProviderToken rotates the stored provider tokens using the refresh token.
func (s *AuthService) RefreshProviderToken(ctx context.Context, userID, provider string) (*core.Account, error) {
	p, err := s.Provider(provider)
	if err != nil {
		return nil, err
	}
	acct, err := s.vault.Account(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	refresh, err := s.vault.RefreshToken(acct)
	if err != nil {
		return nil, err
	}

	token, err := p.RefreshToken(ctx, refresh)
	if err != nil {
		return nil, err
	}

	if token.Scope != "" {
		acct.Scope = token.Scope
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt
		acct.ExpiresAt = &expiresAt
	}
	if err := s.vault.Store(ctx, acct, token.AccessToken, token.RefreshToken); err != nil {
		return nil, err
	}
	return acct, nil
}

// ============================================
// FUMBLE TOKENS
// ============================================

// IssueToken signs a token for user that expires after the configured TTL.
func (s *AuthService) IssueToken(user *core.User) (*core.IssuedToken, error) {
	if user == nil || user.ID == "" {
		return nil, core.ErrUserNotFound
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.token.TTL)
	claims := tokenClaims{
		UserID:       user.ID,
		DiscordID:    user.ExternalID(core.ProviderDiscord),
		WorldAnvilID: user.ExternalID(core.ProviderWorldAnvil),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.token.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &core.IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) parseToken(token string) (*core.TokenPayload, error) {
	if token == "" {
		return nil, core.ErrInvalidToken
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.token.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.UserID == "" {
		return nil, core.ErrInvalidToken
	}

	payload := &core.TokenPayload{
		UserID:       claims.UserID,
		DiscordID:    claims.DiscordID,
		WorldAnvilID: claims.WorldAnvilID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	return payload, nil
}

// VerifyToken checks the token signature and expiry and loads its user. It
// fails with core.ErrInvalidToken or core.ErrUserNotFound.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*core.VerifiedToken, error) {
	payload, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &core.VerifiedToken{Payload: payload, User: user}, nil
}

// RefreshToken verifies token and issues a fresh one for the same user.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (*core.IssuedToken, error) {
	verified, err := s.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.IssueToken(verified.User)
}

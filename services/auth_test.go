package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestVault(t *testing.T, storage *FakeStorage) *Vault {
	t.Helper()
	sealer, err := crypto.NewSealer(testSecret)
	require.NoError(t, err)
	return NewVault(storage, sealer)
}

func newTestAuth(t *testing.T, cfg AuthConfig, providers ...core.SSOProvider) (*AuthService, *FakeStorage) {
	t.Helper()
	storage := NewFakeStorage()
	registry, err := NewProviderRegistry(providers...)
	require.NoError(t, err)
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	svc, err := NewAuthService(storage, registry, newTestVault(t, storage), cfg)
	require.NoError(t, err)
	return svc, storage
}

func discordProfile() *core.SSOProfile {
	return &core.SSOProfile{
		ID:          "d-100",
		Username:    "Rogue Bard",
		Email:       "bard@example.com",
		DisplayName: "The Bard",
		Avatar:      "https://cdn.example/a.png",
		Provider:    core.ProviderDiscord,
	}
}

// flipChar changes the character at the middle of the last dot-separated segment.
func flipChar(value string) string {
	i := strings.LastIndex(value, ".") + (len(value)-strings.LastIndex(value, "."))/2
	b := []byte(value)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

// Requirement: GetAuthorizationURL fails for unknown providers and generates a state when none is given.
func TestAuthService_GetAuthorizationURL(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		state    string
		wantErr  error
	}{
		{name: "uses the given state", provider: core.ProviderDiscord, state: "abc"},
		{name: "generates a state", provider: core.ProviderDiscord},
		{name: "unknown provider", provider: "myspace", wantErr: core.ErrProviderNotRegistered},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc, _ := newTestAuth(t, AuthConfig{}, NewFakeProvider(core.ProviderDiscord, discordProfile()))

			// Act
			url, state, err := svc.GetAuthorizationURL(test.provider, test.state)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, state)
			if test.state != "" {
				assert.Equal(t, test.state, state)
			}
			assert.Contains(t, url, "state="+state)
		})
	}
}

// Requirement: caller-chosen states cannot push generated states out, and both
// kinds are redeemable exactly once.
func TestAuthService_SuppliedStatesKeptApart(t *testing.T) {
	// Arrange
	svc, _ := newTestAuth(t, AuthConfig{}, NewFakeProvider(core.ProviderDiscord, discordProfile()))
	ctx := context.Background()
	_, issued, err := svc.GetAuthorizationURL(core.ProviderDiscord, "")
	require.NoError(t, err)

	// Act
	for i := 0; i <= suppliedStateLimit; i++ {
		_, _, err := svc.GetAuthorizationURL(core.ProviderDiscord, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}

	// Assert
	assert.Equal(t, 1, svc.states.Len())
	assert.Equal(t, suppliedStateLimit, svc.supplied.Len())

	_, err = svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-1", issued)
	require.NoError(t, err)
	_, err = svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-2", fmt.Sprintf("client-%d", suppliedStateLimit))
	require.NoError(t, err)

	_, err = svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-3", "client-0")
	assert.ErrorIs(t, err, core.ErrInvalidState, "oldest supplied state was evicted")
	_, err = svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-4", issued)
	assert.ErrorIs(t, err, core.ErrInvalidState, "state already redeemed")
}

// Requirement: a callback for a new identity creates exactly one user; a repeat login creates none.
func TestAuthService_HandleSSOCallback_UpsertsUser(t *testing.T) {
	// Arrange
	provider := NewFakeProvider(core.ProviderDiscord, discordProfile())
	svc, storage := newTestAuth(t, AuthConfig{}, provider)
	ctx := context.Background()

	// Act
	first, err := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-1", "")
	require.NoError(t, err)
	provider.profile.DisplayName = "The Renamed Bard"
	second, err := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code-2", "")
	require.NoError(t, err)

	// Assert
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, 1, storage.UserCount())
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "The Renamed Bard", second.User.Name)
	assert.Equal(t, "d-100", second.User.ExternalID(core.ProviderDiscord))
	assert.True(t, strings.HasPrefix(first.User.Slug, "rogue-bard-"))
	assert.Len(t, first.User.Slug, len("rogue-bard-")+6)
	assert.NotEmpty(t, second.Token)

	accounts, err := storage.ListAccountsByUser(ctx, first.User.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NotNil(t, accounts[0].AccessToken)
	assert.NotEqual(t, "access-discord", *accounts[0].AccessToken, "provider tokens are sealed at rest")
}

// Requirement: a user row already carrying the provider id signs in as that user and gains the missing account.
func TestAuthService_HandleSSOCallback_MatchesExternalID(t *testing.T) {
	// Arrange
	svc, storage := newTestAuth(t, AuthConfig{}, NewFakeProvider(core.ProviderDiscord, discordProfile()))
	ctx := context.Background()
	discordID := "d-100"
	require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-existing", Name: "Bard", Slug: "bard", DiscordID: &discordID}))

	// Act
	result, err := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code", "")

	// Assert
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "u-existing", result.User.ID)
	assert.Equal(t, "The Bard", result.User.Name)
	assert.Equal(t, 1, storage.UserCount())

	acct, err := storage.GetAccountByProvider(ctx, core.ProviderDiscord, "d-100")
	require.NoError(t, err)
	assert.Equal(t, "u-existing", acct.UserID)
}

// Requirement: callback failures are tagged with the step that failed.
func TestAuthService_HandleSSOCallback_Errors(t *testing.T) {
	upstream := errors.New("discord is down")
	tests := []struct {
		name     string
		provider string
		code     string
		state    func(svc *AuthService) string
		setup    func(p *FakeProvider, s *FakeStorage)
		wantStep string
		wantErr  error
	}{
		{
			name:     "unknown provider",
			provider: "myspace",
			code:     "c",
			wantStep: core.StepProvider,
			wantErr:  core.ErrProviderNotRegistered,
		},
		{
			name:     "state never issued",
			provider: core.ProviderDiscord,
			code:     "c",
			state:    func(*AuthService) string { return "forged" },
			wantStep: core.StepState,
			wantErr:  core.ErrInvalidState,
		},
		{
			name:     "state issued for another provider",
			provider: core.ProviderDiscord,
			code:     "c",
			state: func(svc *AuthService) string {
				_, state, _ := svc.GetAuthorizationURL(core.ProviderWorldAnvil, "")
				return state
			},
			wantStep: core.StepState,
			wantErr:  core.ErrInvalidState,
		},
		{
			name:     "missing code",
			provider: core.ProviderDiscord,
			wantStep: core.StepExchange,
			wantErr:  core.ErrMissingCode,
		},
		{
			name:     "exchange fails",
			provider: core.ProviderDiscord,
			code:     "c",
			setup:    func(p *FakeProvider, _ *FakeStorage) { p.exchangeErr = upstream },
			wantStep: core.StepExchange,
			wantErr:  upstream,
		},
		{
			name:     "profile fails",
			provider: core.ProviderDiscord,
			code:     "c",
			setup:    func(p *FakeProvider, _ *FakeStorage) { p.profileErr = upstream },
			wantStep: core.StepProfile,
			wantErr:  upstream,
		},
		{
			name:     "profile without id",
			provider: core.ProviderDiscord,
			code:     "c",
			setup:    func(p *FakeProvider, _ *FakeStorage) { p.profile.ID = "" },
			wantStep: core.StepProfile,
			wantErr:  core.ErrMissingProfileID,
		},
		{
			name:     "user write fails",
			provider: core.ProviderDiscord,
			code:     "c",
			setup:    func(_ *FakeProvider, s *FakeStorage) { s.createUserErr = upstream },
			wantStep: core.StepUser,
			wantErr:  upstream,
		},
		{
			name:     "account write fails",
			provider: core.ProviderDiscord,
			code:     "c",
			setup:    func(_ *FakeProvider, s *FakeStorage) { s.upsertErr = upstream },
			wantStep: core.StepAccount,
			wantErr:  upstream,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			discord := NewFakeProvider(core.ProviderDiscord, discordProfile())
			worldAnvil := NewFakeProvider(core.ProviderWorldAnvil, &core.SSOProfile{ID: "wa-1", Username: "scribe"})
			svc, storage := newTestAuth(t, AuthConfig{}, discord, worldAnvil)
			if test.setup != nil {
				test.setup(discord, storage)
			}
			state := ""
			if test.state != nil {
				state = test.state(svc)
			}

			// Act
			result, err := svc.HandleSSOCallback(context.Background(), test.provider, test.code, state)

			// Assert
			assert.Nil(t, result)
			var ssoErr *core.SSOError
			require.ErrorAs(t, err, &ssoErr)
			assert.Equal(t, test.wantStep, ssoErr.Step)
			assert.Equal(t, test.provider, ssoErr.Provider)
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

// Requirement: an issued state is accepted once, by the provider it was issued for.
func TestAuthService_HandleSSOCallback_StateIsSingleUse(t *testing.T) {
	// Arrange
	svc, _ := newTestAuth(t, AuthConfig{}, NewFakeProvider(core.ProviderDiscord, discordProfile()))
	ctx := context.Background()
	_, state, err := svc.GetAuthorizationURL(core.ProviderDiscord, "")
	require.NoError(t, err)

	// Act
	_, firstErr := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code", state)
	_, replayErr := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code", state)

	// Assert
	assert.NoError(t, firstErr)
	assert.ErrorIs(t, replayErr, core.ErrInvalidState)
}

// Requirement: Discord ids listed as bootstrap admins are promoted on sign-in.
func TestAuthService_HandleSSOCallback_BootstrapAdmins(t *testing.T) {
	tests := []struct {
		name      string
		admins    []string
		wantAdmin bool
	}{
		{name: "listed", admins: []string{"d-1", "d-100"}, wantAdmin: true},
		{name: "not listed", admins: []string{"d-1"}, wantAdmin: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc, _ := newTestAuth(t, AuthConfig{AdminDiscordIDs: test.admins}, NewFakeProvider(core.ProviderDiscord, discordProfile()))

			// Act
			result, err := svc.HandleSSOCallback(context.Background(), core.ProviderDiscord, "code", "")

			// Assert
			require.NoError(t, err)
			assert.Equal(t, test.wantAdmin, result.User.Admin)
		})
	}
}

// Requirement: a profile email held by another member blocks neither the first sign-in nor later ones.
func TestAuthService_HandleSSOCallback_EmailCollision(t *testing.T) {
	// Arrange
	svc, storage := newTestAuth(t, AuthConfig{}, NewFakeProvider(core.ProviderDiscord, discordProfile()))
	email := "bard@example.com"
	require.NoError(t, storage.CreateUser(context.Background(), &core.User{ID: "u-other", Name: "Other", Slug: "other", Email: &email}))

	// Act
	first, err := svc.HandleSSOCallback(context.Background(), core.ProviderDiscord, "code-1", "")
	require.NoError(t, err)
	second, err := svc.HandleSSOCallback(context.Background(), core.ProviderDiscord, "code-2", "")

	// Assert
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Nil(t, first.User.Email)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Nil(t, second.User.Email)
	assert.Equal(t, 2, storage.UserCount())
}

// Requirement: tokens expire at iat + the configured TTL and carry the linked ids.
func TestAuthService_IssueToken(t *testing.T) {
	// Arrange
	svc, storage := newTestAuth(t, AuthConfig{Token: core.TokenConfig{TTL: 90 * time.Minute}})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	discordID := "d-7"
	user := &core.User{ID: "u-1", Name: "Aria", Slug: "aria", DiscordID: &discordID}
	require.NoError(t, storage.CreateUser(context.Background(), user))

	// Act
	issued, err := svc.IssueToken(user)
	require.NoError(t, err)
	verified, err := svc.VerifyToken(context.Background(), issued.Token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Minute), issued.ExpiresAt)
	assert.True(t, verified.Payload.ExpiresAt.Equal(verified.Payload.IssuedAt.Add(90*time.Minute)))
	assert.Equal(t, "u-1", verified.Payload.UserID)
	assert.Equal(t, "d-7", verified.Payload.DiscordID)
	assert.Empty(t, verified.Payload.WorldAnvilID)
	assert.Equal(t, "Aria", verified.User.Name)
}

// Requirement: VerifyToken distinguishes invalid tokens from missing users and never panics.
func TestAuthService_VerifyToken(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		token   func(valid string, other string) string
		later   time.Duration
		delete  bool
		wantErr error
	}{
		{name: "valid", token: func(v, _ string) string { return v }},
		{name: "empty", token: func(string, string) string { return "" }, wantErr: core.ErrInvalidToken},
		{name: "garbage", token: func(string, string) string { return "not.a.jwt" }, wantErr: core.ErrInvalidToken},
		{name: "no dots", token: func(string, string) string { return "%%%" }, wantErr: core.ErrInvalidToken},
		{name: "tampered", token: func(v, _ string) string { return flipChar(v) }, wantErr: core.ErrInvalidToken},
		{name: "signed with another secret", token: func(_, o string) string { return o }, wantErr: core.ErrInvalidToken},
		{name: "expired", token: func(v, _ string) string { return v }, later: 7*24*time.Hour + time.Second, wantErr: core.ErrInvalidToken},
		{name: "user deleted", token: func(v, _ string) string { return v }, delete: true, wantErr: core.ErrUserNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			svc, storage := newTestAuth(t, AuthConfig{})
			other, _ := newTestAuth(t, AuthConfig{Secret: "another-secret-another-secret-xx"})
			svc.now = func() time.Time { return base }
			user := &core.User{ID: "u-1", Name: "Aria", Slug: "aria"}
			require.NoError(t, storage.CreateUser(context.Background(), user))
			valid, err := svc.IssueToken(user)
			require.NoError(t, err)
			foreign, err := other.IssueToken(user)
			require.NoError(t, err)
			if test.delete {
				require.NoError(t, storage.DeleteUser(context.Background(), user.ID))
			}
			svc.now = func() time.Time { return base.Add(test.later) }

			// Act
			var verified *core.VerifiedToken
			assert.NotPanics(t, func() {
				verified, err = svc.VerifyToken(context.Background(), test.token(valid.Token, foreign.Token))
			})

			// Assert
			if test.wantErr != nil {
				assert.Nil(t, verified)
				assert.True(t, errors.Is(err, test.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, verified.User.ID)
		})
	}
}

// Requirement: RefreshToken issues a new token only for a valid one.
func TestAuthService_RefreshToken(t *testing.T) {
	// Arrange
	svc, storage := newTestAuth(t, AuthConfig{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	user := &core.User{ID: "u-1", Name: "Aria", Slug: "aria"}
	require.NoError(t, storage.CreateUser(context.Background(), user))
	issued, err := svc.IssueToken(user)
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Hour) }

	// Act
	refreshed, err := svc.RefreshToken(context.Background(), issued.Token)
	_, badErr := svc.RefreshToken(context.Background(), "bogus")

	// Assert
	require.NoError(t, err)
	assert.True(t, refreshed.ExpiresAt.After(issued.ExpiresAt))
	assert.ErrorIs(t, badErr, core.ErrInvalidToken)
}

// Requirement: linking attaches a provider identity to the signed-in user and refuses identities owned by someone else.
func TestAuthService_LinkSSOAccount(t *testing.T) {
	// Arrange
	worldAnvil := NewFakeProvider(core.ProviderWorldAnvil, &core.SSOProfile{ID: "wa-1", Username: "scribe"})
	svc, storage := newTestAuth(t, AuthConfig{}, worldAnvil)
	ctx := context.Background()
	for _, id := range []string{"u-1", "u-2"} {
		require.NoError(t, storage.CreateUser(ctx, &core.User{ID: id, Name: id, Slug: id}))
	}

	// Act
	linked, err := svc.LinkSSOAccount(ctx, "u-1", core.ProviderWorldAnvil, "code", "")
	require.NoError(t, err)
	_, elsewhereErr := svc.LinkSSOAccount(ctx, "u-2", core.ProviderWorldAnvil, "code", "")

	// Assert
	assert.Equal(t, "wa-1", linked.ExternalID(core.ProviderWorldAnvil))
	acct, err := storage.GetAccountByUserAndProvider(ctx, "u-1", core.ProviderWorldAnvil)
	require.NoError(t, err)
	assert.Equal(t, "wa-1", acct.AccountID)
	assert.ErrorIs(t, elsewhereErr, core.ErrAccountLinkedElsewhere)
}

// Requirement: unlinking revokes the provider token best-effort, deletes the account and clears the external id.
func TestAuthService_UnlinkProvider(t *testing.T) {
	tests := []struct {
		name      string
		revokeErr error
	}{
		{name: "revocation succeeds"},
		{name: "revocation fails", revokeErr: errors.New("revoke failed")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			discord := NewFakeProvider(core.ProviderDiscord, discordProfile())
			discord.revokeErr = test.revokeErr
			svc, storage := newTestAuth(t, AuthConfig{}, discord)
			ctx := context.Background()
			result, err := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code", "")
			require.NoError(t, err)

			// Act
			err = svc.UnlinkProvider(ctx, result.User.ID, core.ProviderDiscord)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, []string{"access-discord"}, discord.revoked)
			_, err = storage.GetAccountByUserAndProvider(ctx, result.User.ID, core.ProviderDiscord)
			assert.ErrorIs(t, err, core.ErrAccountNotFound)
			user, err := storage.GetUserByID(ctx, result.User.ID)
			require.NoError(t, err)
			assert.Nil(t, user.DiscordID)
		})
	}
}

// Requirement: refreshing provider tokens stores the rotated pair.
func TestAuthService_RefreshProviderToken(t *testing.T) {
	// Arrange
	discord := NewFakeProvider(core.ProviderDiscord, discordProfile())
	svc, _ := newTestAuth(t, AuthConfig{}, discord)
	ctx := context.Background()
	result, err := svc.HandleSSOCallback(ctx, core.ProviderDiscord, "code", "")
	require.NoError(t, err)

	// Act
	acct, err := svc.RefreshProviderToken(ctx, result.User.ID, core.ProviderDiscord)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh-discord"}, discord.refreshed)
	assert.Equal(t, "identify email", acct.Scope)
	token, _, err := svc.vault.AccessToken(ctx, result.User.ID, core.ProviderDiscord)
	require.NoError(t, err)
	assert.Equal(t, "rotated-access", token)
}

// Requirement: providers can be added and removed at runtime, concurrently.
func TestAuthService_ProviderRegistration(t *testing.T) {
	// Arrange
	svc, _ := newTestAuth(t, AuthConfig{})
	var wg sync.WaitGroup

	// Act
	for _, name := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = svc.RegisterProvider(NewFakeProvider(name, &core.SSOProfile{ID: name}))
			_, _ = svc.Provider(name)
			_ = svc.Providers()
		}(name)
	}
	wg.Wait()
	dupErr := svc.RegisterProvider(NewFakeProvider("a", &core.SSOProfile{ID: "a"}))
	removed := svc.UnregisterProvider("b")
	_, missingErr := svc.Provider("b")

	// Assert
	assert.ErrorIs(t, dupErr, core.ErrProviderExists)
	assert.True(t, removed)
	assert.ErrorIs(t, missingErr, core.ErrProviderNotRegistered)
	assert.Equal(t, []string{"a", "c", "d"}, svc.Providers())
}

package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/lborres/fumble/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountFixture struct {
	storage    *FakeStorage
	vault      *Vault
	worldAnvil *FakeWorldAnvil
	writer     *FakeWriter
	svc        *AccountLinkService
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	storage := NewFakeStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-1", Name: "Aria", Slug: "aria"}))
	require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-2", Name: "Bram", Slug: "bram"}))
	vault := newTestVault(t, storage)
	worldAnvil := &FakeWorldAnvil{identity: &core.WorldAnvilIdentity{ID: "wa-1", Username: "scribe"}}
	writer := &FakeWriter{}
	return &accountFixture{
		storage:    storage,
		vault:      vault,
		worldAnvil: worldAnvil,
		writer:     writer,
		svc:        NewAccountLinkService(storage, vault, worldAnvil, writer, nil),
	}
}

// Requirement: a pasted WorldAnvil token is validated, sealed and mirrored onto the user.
func TestAccountLinkService_LinkWorldAnvilToken(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		token    string
		identity *core.WorldAnvilIdentity
		wantErr  error
	}{
		{name: "links", userID: "u-1", token: "  wa-token-123  ", identity: &core.WorldAnvilIdentity{ID: "wa-1", Username: "scribe"}},
		{name: "too short", userID: "u-1", token: "short", wantErr: core.ErrInvalidAPIKey},
		{name: "rejected upstream", userID: "u-1", token: "wa-token-123", wantErr: core.ErrInvalidAPIKey},
		{name: "linked elsewhere", userID: "u-2", token: "wa-token-123", identity: &core.WorldAnvilIdentity{ID: "wa-1"}, wantErr: core.ErrAccountLinkedElsewhere},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := newAccountFixture(t)
			ctx := context.Background()
			if test.name == "linked elsewhere" {
				_, err := f.svc.LinkWorldAnvilToken(ctx, "u-1", "wa-token-000")
				require.NoError(t, err)
			}
			f.worldAnvil.identity = test.identity

			// Act
			status, err := f.svc.LinkWorldAnvilToken(ctx, test.userID, test.token)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, status.Linked)
			assert.Equal(t, "wa-1", status.AccountID)
			assert.Equal(t, "scribe", status.Username)
			token, _, err := f.vault.AccessToken(ctx, "u-1", core.ProviderWorldAnvil)
			require.NoError(t, err)
			assert.Equal(t, "wa-token-123", token)
			user, err := f.storage.GetUserByID(ctx, "u-1")
			require.NoError(t, err)
			assert.Equal(t, "wa-1", user.ExternalID(core.ProviderWorldAnvil))
		})
	}
}

// Requirement: a WorldAnvil outage is reported as an upstream failure, not as a bad token.
func TestAccountLinkService_LinkWorldAnvilToken_Outage(t *testing.T) {
	// Arrange
	f := newAccountFixture(t)
	f.worldAnvil.identityErr = fmt.Errorf("%w: world anvil returned 503", core.ErrUpstream)

	// Act
	_, err := f.svc.LinkWorldAnvilToken(context.Background(), "u-1", "wa-token-123")

	// Assert
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.NotErrorIs(t, err, core.ErrInvalidAPIKey)
}

// Requirement: a WorldAnvil id already mirrored on another user leaves no account behind.
func TestAccountLinkService_LinkWorldAnvilToken_UserConflict(t *testing.T) {
	// Arrange
	f := newAccountFixture(t)
	ctx := context.Background()
	other, err := f.storage.GetUserByID(ctx, "u-2")
	require.NoError(t, err)
	other.SetExternalID(core.ProviderWorldAnvil, "wa-1")
	require.NoError(t, f.storage.UpdateUser(ctx, other))

	// Act
	_, err = f.svc.LinkWorldAnvilToken(ctx, "u-1", "wa-token-123")

	// Assert
	assert.ErrorIs(t, err, core.ErrAccountLinkedElsewhere)
	_, err = f.storage.GetAccountByUserAndProvider(ctx, "u-1", core.ProviderWorldAnvil)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
	user, err := f.storage.GetUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, user.ExternalID(core.ProviderWorldAnvil))
}

// Requirement: WorldAnvil linking without a configured client is unavailable.
func TestAccountLinkService_NotConfigured(t *testing.T) {
	// Arrange
	storage := NewFakeStorage()
	svc := NewAccountLinkService(storage, newTestVault(t, storage), nil, nil, nil)

	// Act
	_, waErr := svc.LinkWorldAnvilToken(context.Background(), "u-1", "wa-token-123")
	_, aiErr := svc.LinkOpenAIKey(context.Background(), "u-1", "sk-valid")

	// Assert
	assert.ErrorIs(t, waErr, core.ErrIntegrationNotConfigured)
	assert.ErrorIs(t, aiErr, core.ErrIntegrationNotConfigured)
}

// Requirement: OpenAI keys must look like keys and pass validation before they are stored.
func TestAccountLinkService_LinkOpenAIKey(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		validateErr error
		wantErr     error
	}{
		{name: "links", key: "sk-valid"},
		{name: "wrong prefix", key: "pk-nope", wantErr: core.ErrInvalidAPIKey},
		{name: "rejected", key: "sk-revoked", validateErr: core.ErrInvalidAPIKey, wantErr: core.ErrInvalidAPIKey},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			f := newAccountFixture(t)
			f.writer.validateErr = test.validateErr
			ctx := context.Background()

			// Act
			status, err := f.svc.LinkOpenAIKey(ctx, "u-1", test.key)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				_, _, tokenErr := f.vault.AccessToken(ctx, "u-1", core.ProviderOpenAI)
				assert.ErrorIs(t, tokenErr, core.ErrAccountNotFound)
				return
			}
			require.NoError(t, err)
			assert.True(t, status.Linked)
			assert.Empty(t, status.AccountID)
			key, acct, err := f.vault.AccessToken(ctx, "u-1", core.ProviderOpenAI)
			require.NoError(t, err)
			assert.Equal(t, test.key, key)
			assert.Equal(t, "u-1", acct.AccountID)
		})
	}
}

// Requirement: status lists every linkable provider, and unlinking clears the credential and mirrored id.
func TestAccountLinkService_StatusAndUnlink(t *testing.T) {
	// Arrange
	f := newAccountFixture(t)
	ctx := context.Background()
	_, err := f.svc.LinkWorldAnvilToken(ctx, "u-1", "wa-token-123")
	require.NoError(t, err)

	// Act
	before, err := f.svc.Status(ctx, "u-1")
	require.NoError(t, err)
	unlinkErr := f.svc.Unlink(ctx, "u-1", core.ProviderWorldAnvil)
	after, err := f.svc.ProviderStatus(ctx, "u-1", core.ProviderWorldAnvil)
	require.NoError(t, err)
	missingErr := f.svc.Unlink(ctx, "u-1", core.ProviderOpenAI)

	// Assert
	require.Len(t, before, 3)
	assert.Equal(t, core.ProviderDiscord, before[0].Provider)
	assert.False(t, before[0].Linked)
	assert.True(t, before[1].Linked)
	assert.False(t, before[2].Linked)
	require.NoError(t, unlinkErr)
	assert.False(t, after.Linked)
	assert.ErrorIs(t, missingErr, core.ErrAccountNotFound)
	user, err := f.storage.GetUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, user.WorldAnvilID)
}

// Requirement: WorldAnvil browsing uses the user's stored token and account id.
func TestWorldAnvilService(t *testing.T) {
	// Arrange
	f := newAccountFixture(t)
	ctx := context.Background()
	_, err := f.svc.LinkWorldAnvilToken(ctx, "u-1", "wa-token-123")
	require.NoError(t, err)
	svc := NewWorldAnvilService(f.worldAnvil, f.vault)
	unconfigured := NewWorldAnvilService(nil, f.vault)

	// Act
	worlds, worldsErr := svc.Worlds(ctx, "u-1")
	folders, foldersErr := svc.BlockFolders(ctx, "u-1", "world-1")
	block, blockErr := svc.Block(ctx, "u-1", "b-7")
	_, unlinkedErr := svc.Worlds(ctx, "u-2")
	_, unconfiguredErr := unconfigured.Worlds(ctx, "u-1")

	// Assert
	require.NoError(t, worldsErr)
	require.NoError(t, foldersErr)
	require.NoError(t, blockErr)
	assert.Len(t, worlds, 1)
	assert.Len(t, folders, 1)
	assert.Equal(t, "b-7", block.ID)
	assert.Equal(t, "wa-token-123", f.worldAnvil.tokens[len(f.worldAnvil.tokens)-1])
	assert.ErrorIs(t, unlinkedErr, core.ErrAccountNotFound)
	assert.ErrorIs(t, unconfiguredErr, core.ErrIntegrationNotConfigured)
}

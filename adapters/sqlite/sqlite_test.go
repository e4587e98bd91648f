package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2024, 5, 1, 12, 30, 0, 123_000_000, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func openTest(t *testing.T) *Adapter {
	t.Helper()
	a, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func seedUser(t *testing.T, a *Adapter, id, name string, mutate func(u *core.User)) *core.User {
	t.Helper()
	u := &core.User{ID: id, Name: name, Slug: id, CreatedAt: stamp, UpdatedAt: stamp}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, a.CreateUser(context.Background(), u))
	return u
}

func seedCharacter(t *testing.T, a *Adapter, id, userID string) *core.Character {
	t.Helper()
	c := &core.Character{ID: id, UserID: userID, Name: "Vex " + id, Slug: id, CreatedAt: stamp, UpdatedAt: stamp}
	require.NoError(t, a.CreateCharacter(context.Background(), c))
	return c
}

// Requirement: Migrations are recorded and a second run is a no-op
func TestMigrateTwice(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()

	// Act
	err := a.Migrate(ctx)

	// Assert
	require.NoError(t, err)
	var count int
	require.NoError(t, a.db.QueryRowContext(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 1, count)
	assert.NoError(t, a.Ping(ctx))
}

// Requirement: A stored user reads back with every field intact
func TestUserLookups(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	seedUser(t, a, "u-1", "Bard", func(u *core.User) {
		u.Email = ptr("bard@example.com")
		u.DiscordID = ptr("d-1")
		u.Admin = true
		u.Data = json.RawMessage(`{"theme":"dark"}`)
	})

	// Act
	byID, errID := a.GetUserByID(ctx, "u-1")
	byEmail, errEmail := a.GetUserByEmail(ctx, "bard@example.com")
	bySlug, errSlug := a.GetUserBySlug(ctx, "u-1")
	_, errMissing := a.GetUserByID(ctx, "u-404")

	// Assert
	require.NoError(t, errID)
	require.NoError(t, errEmail)
	require.NoError(t, errSlug)
	assert.Equal(t, "Bard", byID.Name)
	assert.Equal(t, ptr("d-1"), byID.DiscordID)
	assert.Nil(t, byID.WorldAnvilID)
	assert.True(t, byID.Admin)
	assert.JSONEq(t, `{"theme":"dark"}`, string(byID.Data))
	assert.True(t, stamp.Equal(byID.CreatedAt))
	assert.Equal(t, byID.ID, byEmail.ID)
	assert.Equal(t, byID.ID, bySlug.ID)
	assert.ErrorIs(t, errMissing, core.ErrUserNotFound)
}

// Requirement: users are found by the provider id mirrored on their row
func TestGetUserByExternalID(t *testing.T) {
	a := openTest(t)
	seedUser(t, a, "u-1", "Bard", func(u *core.User) { u.DiscordID = ptr("d-1") })
	seedUser(t, a, "u-2", "Scribe", func(u *core.User) { u.WorldAnvilID = ptr("wa-2") })

	tests := []struct {
		name       string
		provider   string
		externalID string
		wantID     string
		wantErr    error
	}{
		{name: "discord", provider: core.ProviderDiscord, externalID: "d-1", wantID: "u-1"},
		{name: "worldanvil", provider: core.ProviderWorldAnvil, externalID: "wa-2", wantID: "u-2"},
		{name: "unknown id", provider: core.ProviderDiscord, externalID: "d-404", wantErr: core.ErrUserNotFound},
		{name: "provider without a column", provider: core.ProviderOpenAI, externalID: "u-1", wantErr: core.ErrUserNotFound},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			user, err := a.GetUserByExternalID(context.Background(), test.provider, test.externalID)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantID, user.ID)
		})
	}
}

// Requirement: Unique columns report the domain conflict error
func TestUserConflicts(t *testing.T) {
	a := openTest(t)
	seedUser(t, a, "u-1", "Bard", func(u *core.User) { u.Email = ptr("bard@example.com") })

	tests := []struct {
		name string
		user *core.User
		want error
	}{
		{
			name: "email",
			user: &core.User{ID: "u-2", Name: "Other", Slug: "other", Email: ptr("bard@example.com")},
			want: core.ErrEmailTaken,
		},
		{
			name: "slug",
			user: &core.User{ID: "u-3", Name: "Other", Slug: "u-1"},
			want: core.ErrSlugTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			err := a.CreateUser(context.Background(), tt.user)

			// Assert
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// Requirement: User listing filters, counts, and pages
func TestListUsers(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	seedUser(t, a, "u-a", "Aria", func(u *core.User) { u.DiscordID = ptr("d-a") })
	seedUser(t, a, "u-b", "Brom", func(u *core.User) {
		u.DiscordID = ptr("d-b")
		u.Admin = true
	})
	seedUser(t, a, "u-c", "Cass", nil)
	seedUser(t, a, "u-d", "Dorn", func(u *core.User) { u.Email = ptr("dorn@Example.com") })

	tests := []struct {
		name      string
		filter    core.UserFilter
		wantIDs   []string
		wantTotal int
	}{
		{name: "everyone", filter: core.UserFilter{}, wantIDs: []string{"u-a", "u-b", "u-c", "u-d"}, wantTotal: 4},
		{name: "page", filter: core.UserFilter{Limit: 2, Offset: 1}, wantIDs: []string{"u-b", "u-c"}, wantTotal: 4},
		{name: "offset only", filter: core.UserFilter{Offset: 3}, wantIDs: []string{"u-d"}, wantTotal: 4},
		{name: "admins", filter: core.UserFilter{Admin: ptr(true)}, wantIDs: []string{"u-b"}, wantTotal: 1},
		{name: "with discord", filter: core.UserFilter{HasDiscord: ptr(true)}, wantIDs: []string{"u-a", "u-b"}, wantTotal: 2},
		{name: "without discord", filter: core.UserFilter{HasDiscord: ptr(false), Limit: 1}, wantIDs: []string{"u-c"}, wantTotal: 2},
		{name: "search email case-insensitive", filter: core.UserFilter{Search: "example.COM"}, wantIDs: []string{"u-d"}, wantTotal: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			users, total, err := a.ListUsers(ctx, tt.filter)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

// Requirement: Updating or deleting a missing user reports ErrUserNotFound
func TestUserWrites(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	u := seedUser(t, a, "u-1", "Bard", nil)

	// Act
	u.Name = "Bard the Bold"
	u.WorldAnvilID = ptr("wa-1")
	errUpdate := a.UpdateUser(ctx, u)
	errMissing := a.UpdateUser(ctx, &core.User{ID: "u-404", Name: "Ghost", Slug: "ghost"})
	errDelete := a.DeleteUser(ctx, "u-1")
	errDeleteAgain := a.DeleteUser(ctx, "u-1")

	// Assert
	require.NoError(t, errUpdate)
	assert.ErrorIs(t, errMissing, core.ErrUserNotFound)
	require.NoError(t, errDelete)
	assert.ErrorIs(t, errDeleteAgain, core.ErrUserNotFound)
}

// Requirement: Accounts upsert by id, stay unique per provider, and go with their user
func TestAccounts(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	seedUser(t, a, "u-1", "Bard", nil)
	seedUser(t, a, "u-2", "Cass", nil)
	expires := stamp.Add(time.Hour)
	acc := &core.Account{
		ID: "a-1", UserID: "u-1", ProviderID: core.ProviderDiscord, AccountID: "d-1",
		AccessToken: ptr("sealed"), ExpiresAt: &expires, CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, a.UpsertAccount(ctx, acc))

	// Act
	acc.Username = "bard#0001"
	acc.RefreshToken = ptr("sealed-refresh")
	errUpdate := a.UpsertAccount(ctx, acc)
	errTaken := a.UpsertAccount(ctx, &core.Account{
		ID: "a-2", UserID: "u-2", ProviderID: core.ProviderDiscord, AccountID: "d-1", CreatedAt: stamp, UpdatedAt: stamp,
	})
	errOrphan := a.UpsertAccount(ctx, &core.Account{
		ID: "a-3", UserID: "u-404", ProviderID: core.ProviderDiscord, AccountID: "d-3", CreatedAt: stamp, UpdatedAt: stamp,
	})
	byProvider, errByProvider := a.GetAccountByProvider(ctx, core.ProviderDiscord, "d-1")

	// Assert
	require.NoError(t, errUpdate)
	assert.ErrorIs(t, errTaken, core.ErrAccountLinkedElsewhere)
	assert.ErrorIs(t, errOrphan, core.ErrUserNotFound)
	require.NoError(t, errByProvider)
	assert.Equal(t, "bard#0001", byProvider.Username)
	assert.Equal(t, ptr("sealed-refresh"), byProvider.RefreshToken)
	require.NotNil(t, byProvider.ExpiresAt)
	assert.True(t, expires.Equal(*byProvider.ExpiresAt))

	require.NoError(t, a.DeleteUser(ctx, "u-1"))
	_, err := a.GetAccountByUserAndProvider(ctx, "u-1", core.ProviderDiscord)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)
	accounts, err := a.ListAccountsByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

// Requirement: Character slugs are unique and characters need an existing owner
func TestCharacters(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	seedUser(t, a, "u-1", "Bard", nil)
	seedCharacter(t, a, "c-1", "u-1")
	seedCharacter(t, a, "c-2", "u-1")

	// Act
	errDuplicate := a.CreateCharacter(ctx, &core.Character{ID: "c-3", UserID: "u-1", Name: "Copy", Slug: "c-1"})
	errOrphan := a.CreateCharacter(ctx, &core.Character{ID: "c-4", UserID: "u-404", Name: "Lost", Slug: "lost"})
	taken, errTaken := a.CharacterSlugExists(ctx, "c-1", "")
	self, errSelf := a.CharacterSlugExists(ctx, "c-1", "c-1")
	list, errList := a.ListCharactersByUser(ctx, "u-1")

	// Assert
	assert.ErrorIs(t, errDuplicate, core.ErrSlugTaken)
	assert.ErrorIs(t, errOrphan, core.ErrUserNotFound)
	require.NoError(t, errTaken)
	require.NoError(t, errSelf)
	assert.True(t, taken)
	assert.False(t, self)
	require.NoError(t, errList)
	assert.Len(t, list, 2)

	bySlug, err := a.GetCharacterBySlug(ctx, "c-2")
	require.NoError(t, err)
	bySlug.SyncWithWorldAnvil = true
	bySlug.WorldAnvilBlockID = ptr("block-9")
	require.NoError(t, a.UpdateCharacter(ctx, bySlug))
	got, err := a.GetCharacterByID(ctx, "c-2")
	require.NoError(t, err)
	assert.True(t, got.SyncWithWorldAnvil)
	assert.Equal(t, ptr("block-9"), got.WorldAnvilBlockID)
}

// Requirement: A WorldAnvil block backs at most one sheet and sheets go with their character
func TestSheets(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	seedUser(t, a, "u-1", "Bard", nil)
	seedCharacter(t, a, "c-1", "u-1")
	system := &core.RpgSystem{ID: "sys-1", Title: "Fate", Slug: "fate", CreatedAt: stamp, UpdatedAt: stamp}
	require.NoError(t, a.CreateSystem(ctx, system))
	sheet := &core.Sheet{
		ID: "s-1", CharacterID: "c-1", RpgSystemID: ptr("sys-1"), WorldAnvilBlockID: "block-1",
		Title: "Stats", Data: json.RawMessage(`{"str":18}`), IsActive: true, CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, a.CreateSheet(ctx, sheet))

	// Act
	errDuplicate := a.CreateSheet(ctx, &core.Sheet{
		ID: "s-2", CharacterID: "c-1", WorldAnvilBlockID: "block-1", Title: "Copy", CreatedAt: stamp, UpdatedAt: stamp,
	})
	errNoSystem := a.CreateSheet(ctx, &core.Sheet{
		ID: "s-3", CharacterID: "c-1", RpgSystemID: ptr("sys-404"), WorldAnvilBlockID: "block-3", Title: "Lost", CreatedAt: stamp, UpdatedAt: stamp,
	})
	errDeleteSystem := a.DeleteSystem(ctx, "sys-1")
	afterSystem, errGet := a.GetSheetByID(ctx, "s-1")

	// Assert
	assert.ErrorIs(t, errDuplicate, core.ErrSheetAlreadyLinked)
	assert.ErrorIs(t, errNoSystem, core.ErrSystemNotFound)
	require.NoError(t, errDeleteSystem)
	require.NoError(t, errGet)
	assert.Nil(t, afterSystem.RpgSystemID)
	assert.True(t, afterSystem.IsActive)
	assert.JSONEq(t, `{"str":18}`, string(afterSystem.Data))

	require.NoError(t, a.DeleteCharacter(ctx, "c-1"))
	sheets, err := a.ListSheetsByCharacter(ctx, "c-1")
	require.NoError(t, err)
	assert.Empty(t, sheets)
	assert.ErrorIs(t, a.DeleteSheet(ctx, "s-1"), core.ErrSheetNotFound)
}

// Requirement: RPG systems are listed by title and their slug is unique
func TestSystems(t *testing.T) {
	// Arrange
	a := openTest(t)
	ctx := context.Background()
	for _, s := range []*core.RpgSystem{
		{ID: "sys-2", Title: "Pathfinder", Slug: "pathfinder", DiscordRoleID: ptr("r-2")},
		{ID: "sys-1", Title: "Fate", Slug: "fate"},
	} {
		s.CreatedAt, s.UpdatedAt = stamp, stamp
		require.NoError(t, a.CreateSystem(ctx, s))
	}

	// Act
	errDuplicate := a.CreateSystem(ctx, &core.RpgSystem{ID: "sys-3", Title: "Fate Core", Slug: "fate"})
	systems, errList := a.ListSystems(ctx)
	bySlug, errSlug := a.GetSystemBySlug(ctx, "pathfinder")
	errMissing := a.UpdateSystem(ctx, &core.RpgSystem{ID: "sys-404", Title: "Ghost", Slug: "ghost"})

	// Assert
	assert.ErrorIs(t, errDuplicate, core.ErrSlugTaken)
	require.NoError(t, errList)
	require.Len(t, systems, 2)
	assert.Equal(t, "Fate", systems[0].Title)
	require.NoError(t, errSlug)
	assert.Equal(t, ptr("r-2"), bySlug.DiscordRoleID)
	assert.ErrorIs(t, errMissing, core.ErrSystemNotFound)
	_, err := a.GetSystemByID(ctx, "sys-404")
	assert.ErrorIs(t, err, core.ErrSystemNotFound)
}

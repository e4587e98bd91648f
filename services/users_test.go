package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/lborres/fumble/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func seedUsers(t *testing.T, storage *FakeStorage, n int) {
	t.Helper()
	for i := range n {
		id := fmt.Sprintf("u-%03d", i)
		require.NoError(t, storage.CreateUser(context.Background(), &core.User{ID: id, Name: "User " + id, Slug: id}))
	}
}

// Requirement: listing is paginated with a default page of 50, capped at 200, and reports hasMore.
func TestUserService_List(t *testing.T) {
	tests := []struct {
		name        string
		seed        int
		filter      core.UserFilter
		wantLen     int
		wantTotal   int
		wantHasMore bool
	}{
		{name: "default page size", seed: 60, wantLen: 50, wantTotal: 60, wantHasMore: true},
		{name: "last page", seed: 60, filter: core.UserFilter{Limit: 50, Offset: 50}, wantLen: 10, wantTotal: 60},
		{name: "exact fit", seed: 20, filter: core.UserFilter{Limit: 20}, wantLen: 20, wantTotal: 20},
		{name: "limit capped", seed: 250, filter: core.UserFilter{Limit: 1000}, wantLen: 200, wantTotal: 250, wantHasMore: true},
		{name: "negative offset", seed: 3, filter: core.UserFilter{Offset: -5}, wantLen: 3, wantTotal: 3},
		{name: "search", seed: 30, filter: core.UserFilter{Search: "  u-01 "}, wantLen: 10, wantTotal: 10},
		{name: "empty", wantLen: 0, wantTotal: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			seedUsers(t, storage, test.seed)
			svc := NewUserService(storage, nil)

			// Act
			list, err := svc.List(context.Background(), test.filter)

			// Assert
			require.NoError(t, err)
			assert.NotNil(t, list.Users)
			assert.Len(t, list.Users, test.wantLen)
			assert.Equal(t, test.wantTotal, list.Total)
			assert.Equal(t, test.wantHasMore, list.HasMore)
		})
	}
}

// Requirement: created users get an id and slug; names are required and emails and slugs are unique.
func TestUserService_Create(t *testing.T) {
	tests := []struct {
		name     string
		input    core.UserInput
		wantSlug string
		wantErr  error
	}{
		{name: "slug from name", input: core.UserInput{Name: ptr("Game Master")}, wantSlug: "game-master"},
		{name: "explicit slug", input: core.UserInput{Name: ptr("GM"), Slug: ptr("The GM")}, wantSlug: "the-gm"},
		{name: "missing name", input: core.UserInput{Email: ptr("x@example.com")}, wantErr: core.ErrNameRequired},
		{name: "blank name", input: core.UserInput{Name: ptr("   ")}, wantErr: core.ErrNameRequired},
		{name: "email taken", input: core.UserInput{Name: ptr("Copy"), Email: ptr("taken@example.com")}, wantErr: core.ErrEmailTaken},
		{name: "slug taken", input: core.UserInput{Name: ptr("Existing")}, wantErr: core.ErrSlugTaken},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			require.NoError(t, storage.CreateUser(context.Background(), &core.User{
				ID: "u-existing", Name: "Existing", Slug: "existing", Email: ptr("taken@example.com"),
			}))
			svc := NewUserService(storage, nil)

			// Act
			user, err := svc.Create(context.Background(), test.input)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				assert.Equal(t, 1, storage.UserCount())
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, user.ID)
			assert.Equal(t, test.wantSlug, user.Slug)
			assert.Equal(t, 2, storage.UserCount())
		})
	}
}

// Requirement: updates change only the given fields and keep uniqueness.
func TestUserService_Update(t *testing.T) {
	// Arrange
	storage := NewFakeStorage()
	ctx := context.Background()
	require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-1", Name: "Aria", Slug: "aria", Email: ptr("aria@example.com")}))
	require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-2", Name: "Bram", Slug: "bram", Email: ptr("bram@example.com")}))
	svc := NewUserService(storage, nil)

	// Act
	updated, err := svc.Update(ctx, "u-1", core.UserInput{Avatar: ptr("https://cdn.example/a.png")})
	_, emailErr := svc.Update(ctx, "u-1", core.UserInput{Email: ptr("bram@example.com")})
	_, missingErr := svc.Update(ctx, "u-404", core.UserInput{Name: ptr("Ghost")})
	promoted, promoteErr := svc.SetAdmin(ctx, "u-2", true)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Aria", updated.Name)
	assert.Equal(t, "aria@example.com", *updated.Email)
	assert.Equal(t, "https://cdn.example/a.png", *updated.Avatar)
	assert.ErrorIs(t, emailErr, core.ErrEmailTaken)
	assert.ErrorIs(t, missingErr, core.ErrUserNotFound)
	require.NoError(t, promoteErr)
	assert.True(t, promoted.Admin)
}

// Requirement: admins cannot delete themselves; deleting a missing user is not found.
func TestUserService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		callerID  string
		targetID  string
		wantErr   error
		wantCount int
	}{
		{name: "deletes another user", callerID: "u-1", targetID: "u-2", wantCount: 1},
		{name: "cannot delete self", callerID: "u-1", targetID: "u-1", wantErr: core.ErrCannotDeleteSelf, wantCount: 2},
		{name: "missing user", callerID: "u-1", targetID: "u-404", wantErr: core.ErrUserNotFound, wantCount: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			storage := NewFakeStorage()
			ctx := context.Background()
			require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-1", Name: "Admin", Slug: "admin", Admin: true}))
			require.NoError(t, storage.CreateUser(ctx, &core.User{ID: "u-2", Name: "Bram", Slug: "bram"}))
			svc := NewUserService(storage, nil)

			// Act
			err := svc.Delete(ctx, test.callerID, test.targetID)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, test.wantCount, storage.UserCount())
		})
	}
}

package services

import (
	"testing"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T, now time.Time) *SessionCodec {
	t.Helper()
	codec, err := NewSessionCodec(testSecret, core.SessionConfig{MaxAge: time.Hour})
	require.NoError(t, err)
	codec.now = func() time.Time { return now }
	return codec
}

// Requirement: an issued session reads back with the same identity, admin flag and roles.
func TestSessionCodec_IssueAndRead(t *testing.T) {
	// Arrange
	now := time.Date(2026, 5, 1, 9, 30, 15, 500, time.UTC)
	codec := newTestCodec(t, now)
	email := "aria@example.com"
	user := &core.User{ID: "u-1", Name: "Aria", Email: &email, Admin: true}

	// Act
	value, issued, err := codec.Issue(user, []string{"gm", "player"})
	require.NoError(t, err)
	read := codec.Read(value)

	// Assert
	require.NotNil(t, read)
	assert.Equal(t, "u-1", read.UserID)
	assert.Equal(t, "Aria", read.Name)
	assert.Equal(t, email, read.Email)
	assert.True(t, read.Admin)
	assert.Equal(t, []string{"gm", "player"}, read.Roles)
	assert.True(t, issued.ExpiresAt.Equal(now.Truncate(time.Second).Add(time.Hour)))
	assert.True(t, read.ExpiresAt.Equal(issued.ExpiresAt))
}

// Requirement: a session without roles reads back with an empty role list, never nil.
func TestSessionCodec_NoRoles(t *testing.T) {
	// Arrange
	codec := newTestCodec(t, time.Now())

	// Act
	value, _, err := codec.Issue(&core.User{ID: "u-1", Name: "Aria"}, nil)
	require.NoError(t, err)
	read := codec.Read(value)

	// Assert
	require.NotNil(t, read)
	assert.NotNil(t, read.Roles)
	assert.Empty(t, read.Roles)
}

// Requirement: missing, tampered, foreign and expired cookies all read as no session.
func TestSessionCodec_ReadRejects(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		value  func(valid, foreign string) string
		readAt time.Time
	}{
		{name: "empty", value: func(string, string) string { return "" }, readAt: base},
		{name: "garbage", value: func(string, string) string { return "cookie" }, readAt: base},
		{name: "flipped byte", value: func(v, _ string) string { return flipChar(v) }, readAt: base},
		{name: "other secret", value: func(_, f string) string { return f }, readAt: base},
		{name: "expired", value: func(v, _ string) string { return v }, readAt: base.Add(time.Hour)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			codec := newTestCodec(t, base)
			foreignCodec, err := NewSessionCodec("ffffffffffffffffffffffffffffffff", core.SessionConfig{})
			require.NoError(t, err)
			user := &core.User{ID: "u-1", Name: "Aria"}
			valid, _, err := codec.Issue(user, nil)
			require.NoError(t, err)
			foreign, _, err := foreignCodec.Issue(user, nil)
			require.NoError(t, err)
			codec.now = func() time.Time { return test.readAt }

			// Act
			read := codec.Read(test.value(valid, foreign))

			// Assert
			assert.Nil(t, read)
		})
	}
}

// Requirement: session and token keys are derived separately from the same secret.
func TestSessionCodec_TokenIsNotASession(t *testing.T) {
	// Arrange
	svc, storage := newTestAuth(t, AuthConfig{})
	user := &core.User{ID: "u-1", Name: "Aria", Slug: "aria"}
	require.NoError(t, storage.CreateUser(t.Context(), user))
	issued, err := svc.IssueToken(user)
	require.NoError(t, err)
	codec := newTestCodec(t, time.Now())

	// Act
	read := codec.Read(issued.Token)

	// Assert
	assert.Nil(t, read)
}

package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secretshouldbeatleast32charslong"

func TestDeriveKey(t *testing.T) {
	// Act
	tokenKey, err := DeriveKey(testSecret, PurposeToken, 32)
	require.NoError(t, err)
	sessionKey, err := DeriveKey(testSecret, PurposeSession, 32)
	require.NoError(t, err)
	again, err := DeriveKey(testSecret, PurposeToken, 32)
	require.NoError(t, err)

	// Assert
	assert.Len(t, tokenKey, 32)
	assert.Equal(t, tokenKey, again)
	assert.NotEqual(t, tokenKey, sessionKey)

	_, err = DeriveKey("", PurposeToken, 32)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

// Requirement: sealed credentials round-trip and are not stored in plaintext.
func TestSealer_SealOpen(t *testing.T) {
	// Arrange
	sealer, err := NewSealer(testSecret)
	require.NoError(t, err)

	// Act
	sealed, err := sealer.Seal("sk-live-key")
	require.NoError(t, err)
	opened, err := sealer.Open(sealed)

	// Assert
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "sk-live-key")
	assert.Equal(t, "sk-live-key", opened)
}

func TestSealer_OpenPlaintextPassthrough(t *testing.T) {
	sealer, err := NewSealer(testSecret)
	require.NoError(t, err)

	opened, err := sealer.Open("legacy-token")

	require.NoError(t, err)
	assert.Equal(t, "legacy-token", opened)
}

func TestSealer_OpenRejectsTampering(t *testing.T) {
	// Arrange
	sealer, err := NewSealer(testSecret)
	require.NoError(t, err)
	other, err := NewSealer(strings.Repeat("x", 32))
	require.NoError(t, err)
	sealed, err := sealer.Seal("refresh-token")
	require.NoError(t, err)

	// Act
	_, errOther := other.Open(sealed)
	_, errGarbage := sealer.Open(sealedPrefix + "!!!")
	_, errShort := sealer.Open(sealedPrefix + "AAAA")

	// Assert
	assert.ErrorIs(t, errOther, ErrSealedValueCorrupt)
	assert.ErrorIs(t, errGarbage, ErrSealedValueCorrupt)
	assert.ErrorIs(t, errShort, ErrSealedValueCorrupt)
}

package services

import (
	"testing"

	"github.com/lborres/fumble/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requirement: provider names are unique and listed in sorted order.
func TestProviderRegistry(t *testing.T) {
	// Arrange
	registry, err := NewProviderRegistry(
		NewFakeProvider(core.ProviderWorldAnvil, nil),
		NewFakeProvider(core.ProviderDiscord, nil),
	)
	require.NoError(t, err)

	// Act
	dupErr := registry.Register(NewFakeProvider(core.ProviderDiscord, nil))
	p, found := registry.Get(core.ProviderDiscord)
	_, missing := registry.Get("myspace")

	// Assert
	assert.ErrorIs(t, dupErr, core.ErrProviderExists)
	assert.True(t, found)
	assert.Equal(t, core.ProviderDiscord, p.Name())
	assert.False(t, missing)
	assert.Equal(t, []string{core.ProviderDiscord, core.ProviderWorldAnvil}, registry.Names())
	assert.True(t, registry.Unregister(core.ProviderDiscord))
	assert.False(t, registry.Unregister(core.ProviderDiscord))
	assert.Equal(t, []string{core.ProviderWorldAnvil}, registry.Names())
}

// Requirement: duplicate providers at construction are rejected.
func TestNewProviderRegistry_Duplicate(t *testing.T) {
	// Act
	_, err := NewProviderRegistry(
		NewFakeProvider(core.ProviderDiscord, nil),
		NewFakeProvider(core.ProviderDiscord, nil),
	)

	// Assert
	assert.ErrorIs(t, err, core.ErrProviderExists)
}

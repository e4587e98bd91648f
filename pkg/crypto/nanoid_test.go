package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNanoID(t *testing.T) {
	tests := []struct {
		name         string
		alphabet     string
		wantErr      error
		wantAlphabet string
	}{
		{name: "empty uses default", alphabet: "", wantAlphabet: defaultAlphabet},
		{name: "slug alphabet", alphabet: SlugAlphabet, wantAlphabet: SlugAlphabet},
		{name: "too short", alphabet: "abc", wantErr: ErrAlphabetTooShort},
		{name: "too long", alphabet: strings.Repeat("a", 256), wantErr: ErrAlphabetTooLong},
		{name: "non ascii", alphabet: "abcdefgé", wantErr: ErrAlphabetNotASCII},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Act
			gen, err := NewNanoID(test.alphabet)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantAlphabet, gen.alphabet)
		})
	}
}

func TestMaskFor(t *testing.T) {
	tests := []struct {
		n    int
		want byte
	}{
		{n: 8, want: 7},
		{n: 9, want: 15},
		{n: 36, want: 63},
		{n: 64, want: 63},
		{n: 65, want: 127},
		{n: 255, want: 255},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, maskFor(test.n), "maskFor(%d)", test.n)
	}
}

// Requirement: generated ids have the requested size and only use the alphabet.
func TestNanoID_Generate(t *testing.T) {
	// Arrange
	gen, err := NewNanoID(SlugAlphabet)
	require.NoError(t, err)

	for _, size := range []int{0, 1, 6, 64} {
		// Act
		id, err := gen.Generate(size)

		// Assert
		require.NoError(t, err)
		want := size
		if want == 0 {
			want = defaultSize
		}
		assert.Len(t, id, want)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(SlugAlphabet, r), "unexpected rune %q", r)
		}
	}
}

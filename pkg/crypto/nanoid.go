package crypto

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	// SlugAlphabet yields ids that are safe inside a slug
	SlugAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	defaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultSize     = 21
	maxAlphabetSize = 255
	minAlphabetSize = 8
)

var (
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
)

// NanoID generates short random ids over a fixed ASCII alphabet without modulo bias.
type NanoID struct {
	alphabet string
	mask     byte
}

// NewNanoID builds a generator. An empty alphabet selects the url-safe default.
func NewNanoID(alphabet string) (*NanoID, error) {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}
	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &NanoID{alphabet: alphabet, mask: maskFor(len(alphabet))}, nil
}

// maskFor returns the smallest all-ones bitmask covering every alphabet index.
func maskFor(n int) byte {
	mask := 1
	for mask < n-1 {
		mask = mask<<1 | 1
	}
	return byte(mask)
}

// Generate returns an id of size characters (default 21).
func (n *NanoID) Generate(size int) (string, error) {
	if size <= 0 {
		size = defaultSize
	}

	// rejected bytes are the reason for the headroom
	step := int(math.Ceil(1.6 * float64(int(n.mask)*size) / float64(len(n.alphabet))))
	buf := make([]byte, step)
	id := make([]byte, 0, size)

	for len(id) < size {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			idx := int(b & n.mask)
			if idx < len(n.alphabet) {
				id = append(id, n.alphabet[idx])
				if len(id) == size {
					break
				}
			}
		}
	}

	return string(id), nil
}

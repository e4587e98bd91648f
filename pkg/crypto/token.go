package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	DefaultTokenLength = 32 // 256 bits
)

// TokenPair is an opaque random value handed to a client and the digest kept server-side
type TokenPair struct {
	Token string // value returned to client
	Hash  string // value kept in memory or storage
}

// RandomToken returns byteLength random bytes encoded as unpadded base64url.
func RandomToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateHashedToken creates a random token together with its sha256 digest.
func GenerateHashedToken(byteLength int) (*TokenPair, error) {
	token, err := RandomToken(byteLength)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Token: token,
		Hash:  HashToken(token),
	}, nil
}

// HashToken returns the hex sha256 digest of token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes derived from the single configured secret
const (
	PurposeToken   = "token"
	PurposeSession = "session"
	PurposeVault   = "vault"
)

var ErrEmptySecret = errors.New("secret cannot be empty")

// DeriveKey expands secret into a purpose-bound key of the given length so
// tokens, cookies and stored credentials never share key material.
func DeriveKey(secret, purpose string, length int) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if length <= 0 {
		length = 32
	}

	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("fumble/"+purpose))
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

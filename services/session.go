package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/crypto"
)

// sessionClaims is the canonical cookie payload
type sessionClaims struct {
	UserID string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email,omitempty"`
	Avatar string   `json:"avatar,omitempty"`
	Admin  bool     `json:"admin"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// SessionCodec signs and reads the session cookie. Nothing is stored server-side.
type SessionCodec struct {
	key    []byte
	config core.SessionConfig
	now    func() time.Time
}

func NewSessionCodec(secret string, config core.SessionConfig) (*SessionCodec, error) {
	key, err := crypto.DeriveKey(secret, crypto.PurposeSession, 32)
	if err != nil {
		return nil, err
	}
	if config.MaxAge <= 0 {
		config.MaxAge = core.DefaultSessionConfig().MaxAge
	}
	return &SessionCodec{key: key, config: config, now: time.Now}, nil
}

func (c *SessionCodec) Config() core.SessionConfig {
	return c.config
}

// Issue builds the session for user and returns the signed cookie value.
func (c *SessionCodec) Issue(user *core.User, roles []string) (string, *core.Session, error) {
	if user == nil || user.ID == "" {
		return "", nil, core.ErrUserNotFound
	}
	if roles == nil {
		roles = []string{}
	}

	now := c.now().Truncate(time.Second)
	session := &core.Session{
		UserID:    user.ID,
		Name:      user.Name,
		Admin:     user.Admin,
		Roles:     roles,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.config.MaxAge),
	}
	if user.Email != nil {
		session.Email = *user.Email
	}
	if user.Avatar != nil {
		session.Avatar = *user.Avatar
	}

	claims := sessionClaims{
		UserID: session.UserID,
		Name:   session.Name,
		Email:  session.Email,
		Avatar: session.Avatar,
		Admin:  session.Admin,
		Roles:  session.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, err
	}
	return value, session, nil
}

// Read verifies and decodes a cookie value. Any failure yields nil: a missing,
// tampered or expired cookie is indistinguishable from no session.
func (c *SessionCodec) Read(value string) *core.Session {
	session, err := c.parse(value)
	if err != nil {
		return nil
	}
	return session
}

func (c *SessionCodec) parse(value string) (*core.Session, error) {
	if value == "" {
		return nil, core.ErrSessionInvalid
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, errors.Join(core.ErrSessionInvalid, err)
	}
	if claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, core.ErrSessionInvalid
	}

	session := &core.Session{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Email:     claims.Email,
		Avatar:    claims.Avatar,
		Admin:     claims.Admin,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if session.Roles == nil {
		session.Roles = []string{}
	}
	return session, nil
}

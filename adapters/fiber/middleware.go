package fiber

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/fumble/core"
)

const (
	localUser    = "user"
	localSession = "session"
)

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}",

		// Request details
		"${method}|${path}",

		// errors
		"${errors}",
	}
	return strings.Join(format, "|") + "\n"
}

// identify resolves the caller from the session cookie, then from a bearer
// token, and loads the current user row. It fails with
// core.ErrNotAuthenticated when neither identifies a live user.
func (a *Adapter) identify(c fiber.Ctx) (*core.User, *core.Session, error) {
	ctx := c.Context()

	if session := a.fumble.Sessions.Read(c.Cookies(core.SessionCookieName)); session != nil {
		user, err := a.fumble.Storage.GetUserByID(ctx, session.UserID)
		switch {
		case errors.Is(err, core.ErrUserNotFound):
			return nil, nil, core.ErrNotAuthenticated
		case err != nil:
			return nil, nil, err
		}
		return user, session, nil
	}

	token := bearerToken(c)
	if token == "" {
		return nil, nil, core.ErrNotAuthenticated
	}
	verified, err := a.fumble.Auth.VerifyToken(ctx, token)
	switch {
	case errors.Is(err, core.ErrInvalidToken), errors.Is(err, core.ErrUserNotFound):
		return nil, nil, core.ErrNotAuthenticated
	case err != nil:
		return nil, nil, err
	}
	return verified.User, nil, nil
}

// RequireAuth rejects requests without a session or valid bearer token and
// stores the user and session in the context for downstream handlers.
func (a *Adapter) RequireAuth(next fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, session, err := a.identify(c)
		if errors.Is(err, core.ErrNotAuthenticated) {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{Error: "Authentication required"})
		}
		if err != nil {
			a.fumble.Logger.Error("failed to resolve caller", "error", err, "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{Error: "Authentication failed"})
		}

		c.Locals(localUser, user)
		c.Locals(localSession, session)
		return next(c)
	}
}

// WithAdminAuth only invokes next for callers whose session and user row
// both carry the admin flag.
func (a *Adapter) WithAdminAuth(next AdminHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, session, err := a.identify(c)
		if errors.Is(err, core.ErrNotAuthenticated) {
			return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{Error: "Authentication required"})
		}
		if err != nil {
			a.fumble.Logger.Error("failed to load admin", "error", err, "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{Error: "Authentication failed"})
		}
		if !user.Admin || (session != nil && !session.Admin) {
			return c.Status(fiber.StatusForbidden).JSON(core.ErrorResponse{
				Error:   "Admin access required",
				Message: "Only manually designated admins can access this resource",
			})
		}

		c.Locals(localUser, user)
		c.Locals(localSession, session)
		return next(c, core.AdminUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Admin: user.Admin,
		})
	}
}

// parseBearer extracts the token from an "Authorization: Bearer" header
func parseBearer(c fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.TrimSpace(authHeader) == "" {
		return "", core.ErrMissingAuthHeader
	}
	if len(authHeader) <= 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", core.ErrInvalidAuthHeader
	}
	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return token, nil
}

func bearerToken(c fiber.Ctx) string {
	token, _ := parseBearer(c)
	return token
}

// CurrentUser returns the user authenticated by RequireAuth or WithAdminAuth
func CurrentUser(c fiber.Ctx) *core.User {
	user, _ := c.Locals(localUser).(*core.User)
	return user
}

// CurrentSession returns the cookie session, or nil for bearer token requests
func CurrentSession(c fiber.Ctx) *core.Session {
	session, _ := c.Locals(localSession).(*core.Session)
	return session
}

// caller narrows the current user to what services check access against
func caller(c fiber.Ctx) core.Caller {
	user := CurrentUser(c)
	if user == nil {
		return core.Caller{}
	}
	return core.Caller{UserID: user.ID, Admin: user.Admin}
}

// sessionRoles looks up the user's guild roles for the session cookie.
// Lookup failures leave the session without roles.
func (a *Adapter) sessionRoles(ctx context.Context, user *core.User) []string {
	if a.fumble.Guild == nil || user.DiscordID == nil {
		return nil
	}
	roles, err := a.fumble.Guild.MemberRoles(ctx, *user.DiscordID)
	if err != nil {
		a.fumble.Logger.Warn("failed to load guild roles", "user_id", user.ID, "error", err)
		return nil
	}
	return roles
}

func (a *Adapter) setSessionCookie(c fiber.Ctx, value string, session *core.Session) {
	cfg := a.fumble.Sessions.Config()
	c.Cookie(&fiber.Cookie{
		Name:     core.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Expires:  session.ExpiresAt,
		Secure:   cfg.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *Adapter) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     core.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   a.fumble.Sessions.Config().Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

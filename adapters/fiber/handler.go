package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/fumble/core"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type linkProviderRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state"`
}

type worldAnvilLinkRequest struct {
	Token string `json:"token" validate:"required,min=10"`
}

type openAILinkRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

func (a *Adapter) health(c fiber.Ctx) error {
	if err := a.fumble.Storage.Ping(c.Context()); err != nil {
		a.fumble.Logger.Error("health check failed", "error", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ============================================
// AUTHENTICATION
// ============================================

func (a *Adapter) listProviders(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": a.fumble.Auth.Providers()})
}

// authorize redirects to the provider's consent page, or returns the URL
// and state as JSON when format=json.
func (a *Adapter) authorize(c fiber.Ctx) error {
	url, state, err := a.fumble.Auth.GetAuthorizationURL(c.Params("provider"), c.Query("state"))
	if err != nil {
		return a.handleError(c, err)
	}

	if c.Query("format") == "json" {
		return c.JSON(fiber.Map{"url": url, "state": state})
	}
	return c.Redirect().Status(http.StatusFound).To(url)
}

func (a *Adapter) ssoCallback(c fiber.Ctx) error {
	provider := c.Params("provider")
	if denied := c.Query("error"); denied != "" {
		return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "authorization denied",
			Message: denied,
		})
	}

	result, err := a.fumble.Auth.HandleSSOCallback(c.Context(), provider, c.Query("code"), c.Query("state"))
	if err != nil {
		return a.handleError(c, err)
	}

	value, session, err := a.fumble.Sessions.Issue(result.User, a.sessionRoles(c.Context(), result.User))
	if err != nil {
		return a.handleError(c, err)
	}
	a.setSessionCookie(c, value, session)

	return c.JSON(fiber.Map{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
		"created":   result.Created,
	})
}

// verifyToken accepts the token as a bearer header or in the body
func (a *Adapter) verifyToken(c fiber.Ctx) error {
	token, err := parseBearer(c)
	if errors.Is(err, core.ErrMissingAuthHeader) {
		var body tokenRequest
		if bindErr := c.Bind().Body(&body); bindErr == nil && body.Token != "" {
			token, err = body.Token, nil
		}
	}
	if err != nil {
		return a.handleError(c, err)
	}

	verified, err := a.fumble.Auth.VerifyToken(c.Context(), token)
	if errors.Is(err, core.ErrUserNotFound) {
		return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":   true,
		"payload": verified.Payload,
		"user":    verified.User,
	})
}

func (a *Adapter) refreshToken(c fiber.Ctx) error {
	token, err := parseBearer(c)
	if err != nil {
		return a.handleError(c, err)
	}

	issued, err := a.fumble.Auth.RefreshToken(c.Context(), token)
	if errors.Is(err, core.ErrUserNotFound) {
		return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(issued)
}

// signOut clears the session cookie. There is no server-side session to revoke.
func (a *Adapter) signOut(c fiber.Ctx) error {
	a.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "signed out successfully"})
}

func (a *Adapter) getSession(c fiber.Ctx) error {
	return c.JSON(core.SessionData{
		User:    CurrentUser(c),
		Session: CurrentSession(c),
	})
}

func (a *Adapter) linkProvider(c fiber.Ctx) error {
	var body linkProviderRequest
	if err := a.bind(c, &body); err != nil {
		return a.handleError(c, err)
	}

	user, err := a.fumble.Auth.LinkSSOAccount(c.Context(), CurrentUser(c).ID, c.Params("provider"), body.Code, body.State)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(user)
}

func (a *Adapter) unlinkProvider(c fiber.Ctx) error {
	if err := a.fumble.Auth.UnlinkProvider(c.Context(), CurrentUser(c).ID, c.Params("provider")); err != nil {
		return a.handleError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// refreshProviderToken rotates the signed-in user's tokens at provider
func (a *Adapter) refreshProviderToken(c fiber.Ctx) error {
	acct, err := a.fumble.Auth.RefreshProviderToken(c.Context(), CurrentUser(c).ID, c.Params("provider"))
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(acct)
}

// ============================================
// CURRENT USER
// ============================================

func (a *Adapter) getCurrentUser(c fiber.Ctx) error {
	return c.JSON(CurrentUser(c))
}

func (a *Adapter) getUserRoles(c fiber.Ctx) error {
	if a.fumble.Guild == nil {
		return a.handleError(c, core.ErrIntegrationNotConfigured)
	}
	user := CurrentUser(c)
	roles := []string{}
	if user.DiscordID != nil {
		names, err := a.fumble.Guild.MemberRoles(c.Context(), *user.DiscordID)
		if err != nil {
			return a.handleError(c, err)
		}
		if names != nil {
			roles = names
		}
	}
	return c.JSON(fiber.Map{"roles": roles})
}

// ============================================
// LINKED CREDENTIALS
// ============================================

func (a *Adapter) listLinks(c fiber.Ctx) error {
	statuses, err := a.fumble.Accounts.Status(c.Context(), CurrentUser(c).ID)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(statuses)
}

func (a *Adapter) linkStatus(provider string) fiber.Handler {
	return func(c fiber.Ctx) error {
		status, err := a.fumble.Accounts.ProviderStatus(c.Context(), CurrentUser(c).ID, provider)
		if err != nil {
			return a.handleError(c, err)
		}
		return c.JSON(status)
	}
}

func (a *Adapter) unlinkCredential(provider string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := a.fumble.Accounts.Unlink(c.Context(), CurrentUser(c).ID, provider); err != nil {
			return a.handleError(c, err)
		}
		return c.SendStatus(http.StatusNoContent)
	}
}

func (a *Adapter) linkWorldAnvil(c fiber.Ctx) error {
	var body worldAnvilLinkRequest
	if err := a.bind(c, &body); err != nil {
		return a.handleError(c, err)
	}

	status, err := a.fumble.Accounts.LinkWorldAnvilToken(c.Context(), CurrentUser(c).ID, body.Token)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(status)
}

func (a *Adapter) linkOpenAI(c fiber.Ctx) error {
	var body openAILinkRequest
	if err := a.bind(c, &body); err != nil {
		return a.handleError(c, err)
	}

	status, err := a.fumble.Accounts.LinkOpenAIKey(c.Context(), CurrentUser(c).ID, body.APIKey)
	if err != nil {
		return a.handleError(c, err)
	}
	return c.JSON(status)
}

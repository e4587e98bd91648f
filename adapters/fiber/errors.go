package fiber

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/fumble/core"
)

// handleError maps service errors to appropriate HTTP responses
func (a *Adapter) handleError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		a.fumble.Logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(core.ErrorResponse{Error: "internal server error"})
	}
	return c.Status(status).JSON(core.ErrorResponse{Error: err.Error()})
}

// mapErrorToStatus maps fumble error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var ssoErr *core.SSOError
	if errors.As(err, &ssoErr) && (ssoErr.Step == core.StepExchange || ssoErr.Step == core.StepProfile) &&
		!errors.Is(err, core.ErrMissingCode) {
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrSessionInvalid),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrAccessDenied):
		return http.StatusForbidden

	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrCharacterNotFound),
		errors.Is(err, core.ErrSheetNotFound),
		errors.Is(err, core.ErrSystemNotFound),
		errors.Is(err, core.ErrUpstreamNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrAccountLinkedElsewhere):
		return http.StatusConflict

	case errors.Is(err, core.ErrTooManyAuthorizations):
		return http.StatusTooManyRequests

	case errors.Is(err, core.ErrEmailTaken),
		errors.Is(err, core.ErrSlugTaken),
		errors.Is(err, core.ErrCannotDeleteSelf),
		errors.Is(err, core.ErrNameRequired),
		errors.Is(err, core.ErrProviderNotRegistered),
		errors.Is(err, core.ErrInvalidState),
		errors.Is(err, core.ErrMissingCode),
		errors.Is(err, core.ErrNoRefreshToken),
		errors.Is(err, core.ErrCharacterNameRequired),
		errors.Is(err, core.ErrSheetBlockRequired),
		errors.Is(err, core.ErrSheetAlreadyLinked),
		errors.Is(err, core.ErrSystemTitleRequired),
		errors.Is(err, core.ErrInvalidAPIKey),
		errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrUpstream),
		errors.Is(err, core.ErrMissingProfileID):
		return http.StatusBadGateway

	case errors.Is(err, core.ErrIntegrationNotConfigured):
		return http.StatusServiceUnavailable

	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

// bind decodes the request body into v and validates its struct tags
func (a *Adapter) bind(c fiber.Ctx, v any) error {
	if err := c.Bind().Body(v); err != nil {
		return fmt.Errorf("%w: invalid request body", core.ErrInvalidInput)
	}
	if err := a.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s failed %s validation", core.ErrInvalidInput, fieldErrs[0].Field(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return nil
}

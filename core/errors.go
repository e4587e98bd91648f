package core

import "errors"

// User errors
var (
	ErrUserNotFound     = errors.New("user not found")                 // 404 Not Found (401 on token verification)
	ErrEmailTaken       = errors.New("email is already in use")        // 400
	ErrSlugTaken        = errors.New("slug is already in use")         // 400
	ErrCannotDeleteSelf = errors.New("cannot delete your own account") // 400
	ErrNameRequired     = errors.New("name is required")               // 400
)

// Session and token errors
var (
	ErrNotAuthenticated  = errors.New("authentication required")                                 // 401
	ErrAccessDenied      = errors.New("access denied")                                           // 403
	ErrMissingAuthHeader = errors.New("missing authorization header")                            // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrInvalidToken      = errors.New("invalid or expired token")                                // 401
	ErrSessionInvalid    = errors.New("invalid session")                                         // 401
	ErrCacheNotFound     = errors.New("entry not found in cache")
)

// SSO errors
var (
	ErrProviderNotRegistered  = errors.New("sso provider not registered")               // 400
	ErrProviderExists         = errors.New("sso provider already registered")           // 500
	ErrInvalidState           = errors.New("invalid or expired oauth state")            // 400
	ErrMissingCode            = errors.New("authorization code is required")            // 400
	ErrMissingProfileID       = errors.New("provider profile has no id")                // 502
	ErrAccountNotFound        = errors.New("linked account not found")                  // 404
	ErrAccountLinkedElsewhere = errors.New("account is already linked to another user") // 409
	ErrNoRefreshToken         = errors.New("linked account has no refresh token")       // 400
	ErrTooManyAuthorizations  = errors.New("too many authorization requests")           // 429
)

// Character, sheet and system errors
var (
	ErrCharacterNotFound     = errors.New("character not found")                                 // 404
	ErrCharacterNameRequired = errors.New("character name is required")                          // 400
	ErrSheetNotFound         = errors.New("sheet not found")                                     // 404
	ErrSheetBlockRequired    = errors.New("world anvil block id is required")                    // 400
	ErrSheetAlreadyLinked    = errors.New("this world anvil block is already linked to a sheet") // 400
	ErrSystemNotFound        = errors.New("rpg system not found")                                // 404
	ErrSystemTitleRequired   = errors.New("title is required")                                   // 400
)

// Integration errors
var (
	ErrInvalidAPIKey            = errors.New("invalid api key")                 // 400
	ErrIntegrationNotConfigured = errors.New("integration not configured")      // 503
	ErrUpstream                 = errors.New("upstream service request failed") // 502
	ErrUpstreamNotFound         = errors.New("upstream resource not found")     // 404
	ErrUpstreamUnauthorized     = errors.New("upstream rejected credentials")   // 502, wrapped with ErrUpstream
)

// Validation errors (client input)
var (
	ErrInvalidInput = errors.New("invalid request") // 400
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired   = errors.New("database adapter is required") // 500
	ErrHTTPAdapterRequired = errors.New("adapter is required")          // 500
	ErrSecretRequired      = errors.New("secret is required")           // 500
	ErrSecretTooShort      = errors.New("secret too short")             // 500
)

var (
	ErrNotImplemented = errors.New("not implemented") // 501
)

package fiber

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lborres/fumble"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/metrics"
)

// AdminHandler handles a request already authorized by WithAdminAuth
type AdminHandler func(c fiber.Ctx, admin core.AdminUser) error

type Adapter struct {
	app      *fiber.App
	fumble   *fumble.Fumble
	validate *validator.Validate
	gatherer prometheus.Gatherer
	extra    map[string]fiber.Handler

	// per-IP cap on authorize requests
	authorizeMax    int
	authorizeWindow time.Duration
}

var _ fumble.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithMetrics serves the gatherer's collectors on /metrics
func WithMetrics(g prometheus.Gatherer) Option {
	return func(a *Adapter) {
		a.gatherer = g
	}
}

// WithAuthorizeLimit caps authorize requests per client IP. A max of zero or
// less disables the cap.
func WithAuthorizeLimit(max int, window time.Duration) Option {
	return func(a *Adapter) {
		a.authorizeMax = max
		a.authorizeWindow = window
	}
}

// WithHandler binds h to a plugin endpoint's OperationID.
func WithHandler(operationID string, h fiber.Handler) Option {
	return func(a *Adapter) {
		a.extra[operationID] = h
	}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{
		app:      app,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		extra:    make(map[string]fiber.Handler),

		authorizeMax:    20,
		authorizeWindow: time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) RegisterRoutes(f *fumble.Fumble) error {
	a.fumble = f

	a.app.Use(recover.New(), requestid.New())
	a.app.Use(logger.New(logger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	a.app.Get("/healthz", a.health)
	if a.gatherer != nil {
		a.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(a.gatherer)))
	}

	handlers := a.handlers()
	adminHandlers := a.adminHandlers()

	api := a.app.Group(f.BasePath)
	for _, ep := range f.Endpoints.Endpoints() {
		id := ep.Metadata.OperationID

		h := handlers[id]
		switch {
		case ep.Access == core.AccessAdmin:
			if ah, ok := adminHandlers[id]; ok {
				h = a.WithAdminAuth(ah)
			} else if inner := h; inner != nil {
				h = a.WithAdminAuth(func(c fiber.Ctx, _ core.AdminUser) error { return inner(c) })
			}
		case ep.Access == core.AccessSession && h != nil:
			h = a.RequireAuth(h)
		}
		if h == nil {
			return fmt.Errorf("%w: no handler bound to %s %s (%s)", core.ErrNotImplemented, ep.Method, ep.Path, id)
		}

		if id == "authorize" && a.authorizeMax > 0 {
			api.Add([]string{ep.Method}, ep.Path, a.authorizeLimiter(), h)
			continue
		}
		api.Add([]string{ep.Method}, ep.Path, h)
	}

	return nil
}

// authorizeLimiter throttles consent redirects, each of which stores a state.
func (a *Adapter) authorizeLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        a.authorizeMax,
		Expiration: a.authorizeWindow,
		LimitReached: func(c fiber.Ctx) error {
			return a.handleError(c, core.ErrTooManyAuthorizations)
		},
	})
}

// handlers maps public and session OperationIDs to their handlers
func (a *Adapter) handlers() map[string]fiber.Handler {
	h := map[string]fiber.Handler{
		// Authentication
		"listProviders":        a.listProviders,
		"authorize":            a.authorize,
		"ssoCallback":          a.ssoCallback,
		"verifyToken":          a.verifyToken,
		"refreshToken":         a.refreshToken,
		"signOut":              a.signOut,
		"getSession":           a.getSession,
		"linkProvider":         a.linkProvider,
		"unlinkProvider":       a.unlinkProvider,
		"refreshProviderToken": a.refreshProviderToken,

		// Current user
		"getCurrentUser": a.getCurrentUser,
		"getUserRoles":   a.getUserRoles,

		// Linked credentials
		"listLinks":         a.listLinks,
		"getWorldAnvilLink": a.linkStatus(core.ProviderWorldAnvil),
		"linkWorldAnvil":    a.linkWorldAnvil,
		"unlinkWorldAnvil":  a.unlinkCredential(core.ProviderWorldAnvil),
		"getOpenAILink":     a.linkStatus(core.ProviderOpenAI),
		"linkOpenAI":        a.linkOpenAI,
		"unlinkOpenAI":      a.unlinkCredential(core.ProviderOpenAI),

		// Characters and sheets
		"listCharacters":     a.listCharacters,
		"createCharacter":    a.createCharacter,
		"getCharacterBySlug": a.getCharacterBySlug,
		"getCharacter":       a.getCharacter,
		"updateCharacter":    a.updateCharacter,
		"deleteCharacter":    a.deleteCharacter,
		"describeCharacter":  a.describeCharacter,
		"listSheets":         a.listSheets,
		"createSheet":        a.createSheet,
		"getSheet":           a.getSheet,
		"updateSheet":        a.updateSheet,
		"deleteSheet":        a.deleteSheet,

		// Catalogue and WorldAnvil browsing
		"listRpgSystems":   a.listRpgSystems,
		"listWorlds":       a.listWorlds,
		"listBlockFolders": a.listBlockFolders,
		"getBlock":         a.getBlock,
	}
	for id, extra := range a.extra {
		h[id] = extra
	}
	return h
}

func (a *Adapter) adminHandlers() map[string]AdminHandler {
	return map[string]AdminHandler{
		"adminListUsers":       a.adminListUsers,
		"adminCreateUser":      a.adminCreateUser,
		"adminGetUser":         a.adminGetUser,
		"adminUpdateUser":      a.adminUpdateUser,
		"adminDeleteUser":      a.adminDeleteUser,
		"adminListRpgSystems":  a.adminListRpgSystems,
		"adminCreateRpgSystem": a.adminCreateRpgSystem,
		"adminUpdateRpgSystem": a.adminUpdateRpgSystem,
		"adminDeleteRpgSystem": a.adminDeleteRpgSystem,
		"adminDiscordRoles":    a.adminDiscordRoles,
		"adminDiscordChannels": a.adminDiscordChannels,
	}
}

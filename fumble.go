package fumble

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/crypto"
	"github.com/lborres/fumble/pkg/metrics"
	"github.com/lborres/fumble/services"
)

// HTTPAdapter binds the fumble endpoints to an HTTP framework
type HTTPAdapter interface {
	RegisterRoutes(f *Fumble) error
}

// interfaces
type (
	Storage           = core.Storage
	SSOProvider       = core.SSOProvider
	GuildDirectory    = core.GuildDirectory
	WorldAnvilAPI     = core.WorldAnvilAPI
	DescriptionWriter = core.DescriptionWriter
)

// structs
type (
	User          = core.User
	Account       = core.Account
	Session       = core.Session
	SessionData   = core.SessionData
	SessionConfig = core.SessionConfig
	TokenConfig   = core.TokenConfig
	Character     = core.Character
	Sheet         = core.Sheet
	RpgSystem     = core.RpgSystem
	Endpoint      = core.Endpoint
	SSOError      = core.SSOError
)

const (
	defaultBasePath  = "/api"
	defaultSecretLen = 32
)

// Constructors & helpers (convenience re-exports)
var (
	DefaultSessionConfig = core.DefaultSessionConfig
	DefaultTokenConfig   = core.DefaultTokenConfig
)

var (
	ErrUserNotFound     = core.ErrUserNotFound
	ErrEmailTaken       = core.ErrEmailTaken
	ErrSlugTaken        = core.ErrSlugTaken
	ErrCannotDeleteSelf = core.ErrCannotDeleteSelf
)

var (
	ErrNotAuthenticated = core.ErrNotAuthenticated
	ErrAccessDenied     = core.ErrAccessDenied
	ErrInvalidToken     = core.ErrInvalidToken
)

var (
	ErrProviderNotRegistered  = core.ErrProviderNotRegistered
	ErrInvalidState           = core.ErrInvalidState
	ErrAccountLinkedElsewhere = core.ErrAccountLinkedElsewhere
)

var (
	ErrDBAdapterRequired   = core.ErrDBAdapterRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrSecretRequired      = core.ErrSecretRequired
	ErrSecretTooShort      = core.ErrSecretTooShort
)

type Config struct {
	Secret   string
	Database core.Storage
	HTTP     HTTPAdapter
	BasePath string

	Token    core.TokenConfig
	Session  core.SessionConfig
	StateTTL time.Duration
	// AdminDiscordIDs are promoted to admin on their next Discord sign-in
	AdminDiscordIDs []string

	Providers []core.SSOProvider
	// Plugins add endpoints; the HTTP adapter must bind a handler to each
	Plugins []core.EndpointProvider

	Guild      core.GuildDirectory    // optional
	WorldAnvil core.WorldAnvilAPI     // optional
	Writer     core.DescriptionWriter // optional
	OpenAIKey  string                 // server fallback for character descriptions

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Fumble holds the wired services an HTTP adapter serves
type Fumble struct {
	Auth       *services.AuthService
	Sessions   *services.SessionCodec
	Users      *services.UserService
	Characters *services.CharacterService
	Sheets     *services.SheetService
	Systems    *services.SystemService
	Accounts   *services.AccountLinkService
	WorldAnvil *services.WorldAnvilService
	Endpoints  *services.EndpointRegistry

	Guild    core.GuildDirectory
	Storage  core.Storage
	BasePath string
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

func New(config Config) (*Fumble, error) {
	if config.Secret == "" {
		return nil, ErrSecretRequired
	}
	if len(config.Secret) < defaultSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, defaultSecretLen)
	}
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	// Set Defaults

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	sealer, err := crypto.NewSealer(config.Secret)
	if err != nil {
		return nil, err
	}
	vault := services.NewVault(config.Database, sealer)

	providers, err := services.NewProviderRegistry(config.Providers...)
	if err != nil {
		return nil, err
	}

	auth, err := services.NewAuthService(config.Database, providers, vault, services.AuthConfig{
		Secret:          config.Secret,
		Token:           config.Token,
		StateTTL:        config.StateTTL,
		AdminDiscordIDs: config.AdminDiscordIDs,
		Logger:          logger,
		Metrics:         config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := services.NewSessionCodec(config.Secret, config.Session)
	if err != nil {
		return nil, err
	}

	endpoints := services.NewEndpointRegistry()
	for _, plugin := range config.Plugins {
		if err := endpoints.RegisterPlugin(plugin.GetEndpoints()); err != nil {
			return nil, err
		}
	}

	characters := services.NewCharacterService(config.Database, vault, services.CharacterConfig{
		WorldAnvil: config.WorldAnvil,
		Writer:     config.Writer,
		OpenAIKey:  config.OpenAIKey,
		Logger:     logger,
	})

	f := &Fumble{
		Auth:       auth,
		Sessions:   sessions,
		Users:      services.NewUserService(config.Database, logger),
		Characters: characters,
		Sheets:     services.NewSheetService(config.Database),
		Systems:    services.NewSystemService(config.Database),
		Accounts:   services.NewAccountLinkService(config.Database, vault, config.WorldAnvil, config.Writer, logger),
		WorldAnvil: services.NewWorldAnvilService(config.WorldAnvil, vault),
		Endpoints:  endpoints,
		Guild:      config.Guild,
		Storage:    config.Database,
		BasePath:   basePath,
		Logger:     logger,
		Metrics:    config.Metrics,
	}

	if err := config.HTTP.RegisterRoutes(f); err != nil {
		return nil, err
	}

	return f, nil
}

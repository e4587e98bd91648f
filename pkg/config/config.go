package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Config is the process configuration read from the environment
type Config struct {
	Secret        string        `env:"FUMBLE_SECRET"`
	HTTPAddr      string        `env:"HTTP_ADDR"           envDefault:":8080"`
	PublicURL     string        `env:"PUBLIC_URL"          envDefault:"http://localhost:8080"`
	LogLevel      string        `env:"LOG_LEVEL"           envDefault:"info"`
	DBDriver      string        `env:"FUMBLE_DB_DRIVER"    envDefault:"postgres"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	SQLitePath    string        `env:"SQLITE_PATH"         envDefault:"fumble.db"`
	TokenTTL      time.Duration `env:"TOKEN_TTL"           envDefault:"168h"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE"     envDefault:"24h"`
	CookieSecure  bool          `env:"COOKIE_SECURE"       envDefault:"false"`
	StateTTL      time.Duration `env:"OAUTH_STATE_TTL"     envDefault:"10m"`
	HTTPTimeout   time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"10s"`

	AuthorizeLimit  int           `env:"AUTHORIZE_RATE_LIMIT"  envDefault:"20"`
	AuthorizeWindow time.Duration `env:"AUTHORIZE_RATE_WINDOW" envDefault:"1m"`

	Discord    DiscordConfig
	WorldAnvil WorldAnvilConfig
	OpenAI     OpenAIConfig
}

type DiscordConfig struct {
	ClientID        string   `env:"DISCORD_CLIENT_ID"`
	ClientSecret    string   `env:"DISCORD_CLIENT_SECRET"`
	RedirectURI     string   `env:"DISCORD_REDIRECT_URI"`
	GuildID         string   `env:"DISCORD_SERVER_ID"`
	BotToken        string   `env:"DISCORD_WEB_BOT_TOKEN"`
	AdminIDs        []string `env:"DISCORD_ADMIN_IDS"         envSeparator:","`
	RestrictToGuild bool     `env:"DISCORD_RESTRICT_TO_GUILD" envDefault:"false"`
}

type WorldAnvilConfig struct {
	APIURL       string `env:"WORLD_ANVIL_API_URL" envDefault:"https://www.worldanvil.com/api/v1"`
	AppKey       string `env:"WORLD_ANVIL_KEY"`
	ClientID     string `env:"WORLD_ANVIL_CLIENT_ID"`
	ClientSecret string `env:"WORLD_ANVIL_CLIENT_SECRET"`
	RedirectURI  string `env:"WORLD_ANVIL_REDIRECT_URI"`
}

type OpenAIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize()
}

// Parse builds a Config from an explicit environment, ignoring the process environment
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalize()
}

func (c Config) normalize() (*Config, error) {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, c.DBDriver)
	}

	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if c.Discord.RedirectURI == "" {
		c.Discord.RedirectURI = c.PublicURL + "/api/auth/discord/callback"
	}
	if c.WorldAnvil.RedirectURI == "" {
		c.WorldAnvil.RedirectURI = c.PublicURL + "/api/auth/worldanvil/callback"
	}
	c.Discord.AdminIDs = normalizeIDs(c.Discord.AdminIDs)

	return &c, nil
}

// normalizeIDs accepts both `a,b` and the bracketed `["a","b"]` list form.
func normalizeIDs(raw []string) []string {
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.Trim(strings.TrimSpace(id), `[]"' `)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// DiscordEnabled reports whether Discord SSO is configured
func (c *Config) DiscordEnabled() bool {
	return c.Discord.ClientID != "" && c.Discord.ClientSecret != ""
}

// WorldAnvilEnabled reports whether WorldAnvil SSO is configured
func (c *Config) WorldAnvilEnabled() bool {
	return c.WorldAnvil.ClientID != "" && c.WorldAnvil.ClientSecret != ""
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/fumble"
	"github.com/lborres/fumble/adapters/discord"
	"github.com/lborres/fumble/adapters/openai"
	pgxadapter "github.com/lborres/fumble/adapters/pgx"
	sqliteadapter "github.com/lborres/fumble/adapters/sqlite"
	"github.com/lborres/fumble/adapters/worldanvil"
	"github.com/lborres/fumble/core"
	"github.com/lborres/fumble/pkg/config"
	"github.com/lborres/fumble/pkg/metrics"
)

// store is a storage adapter that owns its schema
type store interface {
	core.Storage
	Migrate(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		s, err := sqliteadapter.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		return pgxadapter.New(pool), pool.Close, nil
	}
}

func providers(cfg *config.Config, client *http.Client) []core.SSOProvider {
	var list []core.SSOProvider
	if cfg.DiscordEnabled() {
		pc := discord.ProviderConfig{
			ClientID:     cfg.Discord.ClientID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURI:  cfg.Discord.RedirectURI,
			HTTPClient:   client,
		}
		if cfg.Discord.RestrictToGuild {
			pc.GuildID = cfg.Discord.GuildID
		}
		list = append(list, discord.NewProvider(pc))
	}
	if cfg.WorldAnvilEnabled() {
		list = append(list, worldanvil.NewProvider(worldanvil.ProviderConfig{
			ClientID:     cfg.WorldAnvil.ClientID,
			ClientSecret: cfg.WorldAnvil.ClientSecret,
			RedirectURI:  cfg.WorldAnvil.RedirectURI,
			AppKey:       cfg.WorldAnvil.AppKey,
			APIBase:      cfg.WorldAnvil.APIURL,
			HTTPClient:   client,
		}))
	}
	return list
}

// newFumble wires config, storage and the optional integrations. Integrations
// that are not configured are left nil and their endpoints answer 503.
func newFumble(cfg *config.Config, st core.Storage, adapter fumble.HTTPAdapter, log *slog.Logger, m *metrics.Metrics) (*fumble.Fumble, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	fc := fumble.Config{
		Secret:          cfg.Secret,
		Database:        st,
		HTTP:            adapter,
		Token:           core.TokenConfig{TTL: cfg.TokenTTL},
		Session:         core.SessionConfig{MaxAge: cfg.SessionMaxAge, Secure: cfg.CookieSecure},
		StateTTL:        cfg.StateTTL,
		AdminDiscordIDs: cfg.Discord.AdminIDs,
		Providers:       providers(cfg, client),
		OpenAIKey:       cfg.OpenAI.APIKey,
		Logger:          log,
		Metrics:         m,
	}

	guild, err := discord.NewClient(discord.ClientConfig{
		BotToken:   cfg.Discord.BotToken,
		GuildID:    cfg.Discord.GuildID,
		HTTPClient: client,
		Metrics:    m,
	})
	switch {
	case err == nil:
		fc.Guild = guild
	case errors.Is(err, core.ErrIntegrationNotConfigured):
		log.Info("discord guild directory disabled", slog.String("reason", err.Error()))
	default:
		return nil, err
	}

	wa, err := worldanvil.NewClient(worldanvil.ClientConfig{
		APIBase:    cfg.WorldAnvil.APIURL,
		AppKey:     cfg.WorldAnvil.AppKey,
		HTTPClient: client,
		Metrics:    m,
	})
	switch {
	case err == nil:
		fc.WorldAnvil = wa
	case errors.Is(err, core.ErrIntegrationNotConfigured):
		log.Info("worldanvil client disabled", slog.String("reason", err.Error()))
	default:
		return nil, err
	}

	fc.Writer = openai.NewWriter(openai.Config{
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.Model,
		HTTPClient: client,
		Metrics:    m,
	})

	return fumble.New(fc)
}

// noRoutes serves nothing; CLI commands use the services directly
type noRoutes struct{}

func (noRoutes) RegisterRoutes(*fumble.Fumble) error { return nil }

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	fiberadapter "github.com/lborres/fumble/adapters/fiber"
	"github.com/lborres/fumble/pkg/config"
	"github.com/lborres/fumble/pkg/logger"
	"github.com/lborres/fumble/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.LogLevel)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if migrate {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	reg, m := metrics.NewRegistry()
	app := fiber.New(fiber.Config{AppName: "fumble"})

	adapter := fiberadapter.New(app,
		fiberadapter.WithMetrics(reg),
		fiberadapter.WithAuthorizeLimit(cfg.AuthorizeLimit, cfg.AuthorizeWindow),
	)
	if _, err := newFumble(cfg, st, adapter, log, m); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", cfg.HTTPAddr), slog.String("driver", cfg.DBDriver))
		errCh <- app.Listen(cfg.HTTPAddr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lborres/fumble"
	"github.com/lborres/fumble/pkg/config"
	"github.com/lborres/fumble/pkg/logger"
)

// withServices loads config, opens storage and runs fn against wired services
func withServices(ctx context.Context, fn func(f *fumble.Fumble) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(cfg.LogLevel).With(slog.String("component", "cli"))

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := newFumble(cfg, st, noRoutes{}, log, nil)
	if err != nil {
		return err
	}
	return fn(f)
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a fumble token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withServices(ctx, func(f *fumble.Fumble) error {
				user, err := f.Users.Get(ctx, args[0])
				if err != nil {
					return err
				}
				issued, err := f.Auth.IssueToken(user)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(issued)
			})
		},
	}
}

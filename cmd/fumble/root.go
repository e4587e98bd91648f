package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fumble",
		Short: "Community backend for characters, sheets and RPG systems",
		Long: `fumble signs community members in with Discord or WorldAnvil, keeps their
characters and sheets in sync with WorldAnvil, and exposes an admin API for
users, RPG systems and the Discord guild.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newRoutesCmd(),
		newTokenCmd(),
		newAdminCmd(),
	)
	return root
}

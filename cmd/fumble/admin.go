package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lborres/fumble"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Grant or revoke admin access",
	}
	cmd.AddCommand(
		setAdminCmd("grant", "Make a user an admin", true),
		setAdminCmd("revoke", "Remove a user's admin access", false),
	)
	return cmd
}

func setAdminCmd(use, short string, admin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withServices(ctx, func(f *fumble.Fumble) error {
				user, err := f.Users.SetAdmin(ctx, args[0], admin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) admin=%t\n", user.Name, user.ID, user.Admin)
				return nil
			})
		},
	}
}

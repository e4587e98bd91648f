package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lborres/fumble/services"
)

func newRoutesCmd() *cobra.Command {
	var basePath string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the API routes and the access each one requires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tACCESS\tOPERATION")
			fmt.Fprintln(w, "GET\t/healthz\tpublic\thealth")
			fmt.Fprintln(w, "GET\t/metrics\tpublic\tmetrics")
			for _, ep := range services.NewEndpointRegistry().Endpoints() {
				fmt.Fprintf(w, "%s\t%s%s\t%s\t%s\n", ep.Method, basePath, ep.Path, ep.Access, ep.Metadata.OperationID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "prefix for API routes")
	return cmd
}

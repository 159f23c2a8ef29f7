package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:           "chcemmat",
		Short:         "Gift wishlist service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run migrations, then serve the HTTP API, metrics and the reconciler",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over reservations and item statuses",
		RunE:  runReconcile,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the chcemmat version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
)

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chcemmat: %v\n", err)
		os.Exit(1)
	}
}

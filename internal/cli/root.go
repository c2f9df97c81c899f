package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subway",
		Short: "Subway network service: lines, sections and shortest paths",
		Long: `subway keeps a network of stations and lines in PostgreSQL or SQLite
and answers shortest-path queries across lines.

Configuration is read from the environment (and a .env file when present).
DATABASE_URL selects the store: postgres://..., sqlite://path, file:path
or "memory".`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		seedCmd(),
		pathCmd(),
		linesCmd(),
	)
	return cmd
}

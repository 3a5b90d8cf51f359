package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entrypoint"
)

// BuildInfo is stamped at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

// commonFlags override the environment for the commands that open the database.
type commonFlags struct {
	databasePath string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.databasePath, "db", "", "SQLite database path (overrides DATABASE_PATH)")
}

func (f *commonFlags) config() *config.Config {
	cfg := config.NewConfig()
	if f.databasePath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = f.databasePath
	}
	return cfg
}

// NewRootCommand builds the command tree. Running it without a subcommand serves HTTP.
func NewRootCommand(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "librarydesk",
		Short:         "Library management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entrypoint.Run(config.NewConfig(), info.Version)
			return nil
		},
	}

	root.AddCommand(
		newServeCommand(info),
		newCreateAdminCommand(),
		newNotifyCommand(),
		newVersionCommand(info),
	)
	return root
}

func newServeCommand(info BuildInfo) *cobra.Command {
	var flags commonFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entrypoint.Run(flags.config(), info.Version)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "librarydesk %s (commit %s)\n", info.Version, info.Commit)
		},
	}
}

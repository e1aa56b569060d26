// Package cli implements the legalctl command line: seeding the knowledge base and
// asking one-off questions against the same engine the API serves.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"legal-assistant/internal/app"
	"legal-assistant/internal/config"
)

// options are shared by every subcommand.
type options struct {
	logLevel string
	cfg      *config.Config
	// build is replaced in tests.
	build func(cmd *cobra.Command, cfg *config.Config) (*app.App, error)
}

// NewRootCommand returns the legalctl command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{
		build: func(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
			return app.Build(cmd.Context(), cfg)
		},
	})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "legalctl",
		Short: "Polish legal assistant tooling",
		Long: `legalctl seeds the legal knowledge base and asks questions against it.

Configuration is read from the environment and .env, like the API server.

Example usage:
  legalctl seed ./data/processed          # Seed knowledge files
  legalctl ask "Jak uzyskać kartę pobytu?" # Ask a question`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			level := cfg.LogLevel
			if opts.logLevel != "" {
				if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
					return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
				}
			}
			slog.SetDefault(app.NewLogger(cmd.ErrOrStderr(), level, cfg.LogFormat))
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	root.AddCommand(newSeedCommand(opts), newAskCommand(opts))
	return root
}

// Execute runs legalctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

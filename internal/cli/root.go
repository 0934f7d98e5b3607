// Package cli holds the dashboard command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/logging"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
	cfg      *config.Config
}

// NewRootCommand creates the root command for the dashboard binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "dashboard",
		Short:         "Character dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			logging.Setup(cfg.LogLevel, cfg.LogEncoding)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCreateUserCommand(opts))

	return cmd
}

// Execute runs the command tree and logs the error that stopped it.
func Execute() error {
	err := NewRootCommand().Execute()
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	return err
}

func requireStore(cfg *config.Config) error {
	if !cfg.StoreConfigured() {
		return fmt.Errorf("record store is not configured: set DATABASE_URL or DB_PASSWORD")
	}
	return nil
}

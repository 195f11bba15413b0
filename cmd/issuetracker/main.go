package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/issue-tracker/internal/config"
	"github.com/spec-kit/issue-tracker/internal/observability"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
)

var (
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "issuetracker",
	Short:         "Issue tracking HTTP service",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Logger.Level = logLevel
		}
		if loaded.App.Version == "dev" {
			loaded.App.Version = version
		}
		built, err := observability.NewLogger(loaded.Logger)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg, logger = loaded, built
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "issuetracker %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, usersCmd)
}

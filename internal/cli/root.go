// Package cli implements the vmatch command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/vmatch/internal/config"
	"github.com/okian/vmatch/pkg/logger"
)

var (
	// Version info set from main
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	configPath string
	logLevel   string

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg *config.Config
)

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vmatch",
	Short: "Match volunteers with NGO projects",
	Long: `vmatch ranks volunteering projects for volunteers and volunteers for projects.

It provides:
  - An HTTP API for projects, volunteers, applications and matching
  - Proactive notifications to the best candidates of a new project
  - A chatbot for volunteering questions (when an API key is configured)
  - Tools to seed a demo catalog and inspect recommendations`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx available to every subcommand.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"YAML config file (default: $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and initializes logging. The version command
// needs neither.
func setup(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}
	if configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, configPath); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}

	loaded, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}

	if err := logger.Init(logger.WithFormat(loaded.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(loaded.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", loaded.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	cfg = loaded
	return nil
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "vmatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", buildTime)
	},
}

// Package cli implements sirenctl, an operator tool for one-off registry lookups.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"siren/internal/platform/config"
	"siren/internal/platform/logger"
)

var version = "dev"

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "sirenctl",
	Short:         "Query the French company registry from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

func loadConfig() (config.Config, error) {
	return config.Load(envFile)
}

func newLogger(w io.Writer) *slog.Logger {
	return logger.NewWithWriter(w, logLevel, "text")
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/service/setup"
	"github.com/semenovdl/review-stand/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel controls logging verbosity.
	logLevel string
	// apiKey skips the interactive secret prompt when provided.
	apiKey string

	// rootCmd represents the base command for materializing stand secrets.
	rootCmd = &cobra.Command{
		Use:   "stand-setup",
		Short: "Materialize the application secrets file.",
		Long: `Creates the application env file with the LLM provider key, database
connection parameters and rate limit setting.

The LLM provider key is prompted with input masking; an empty key aborts
before anything is written. Non-sensitive fields fall back to defaults on
empty input and the database password is generated from a cryptographic
random source. The file is created with owner-only permissions and is never
overwritten by later runs.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			options := &setup.Options{
				ConfigPath: configPath,
				APIKey:     apiKey,
			}

			return setup.Run(ctx, options)
		},
	}
)

// Execute runs the stand-setup CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyLogLevel sets the global logging level from the command line flag.
func applyLogLevel() {
	if level, ok := logger.ParseLogLevel(logLevel); ok {
		logger.SetLevel(level)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "LLM provider API key (skips the interactive prompt)")
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/service/doctor"
	"github.com/semenovdl/review-stand/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel controls logging verbosity.
	logLevel string

	// rootCmd represents the base command for checking stand preconditions.
	rootCmd = &cobra.Command{
		Use:   "stand-doctor",
		Short: "Check provisioning preconditions without provisioning.",
		Long: `Runs every precondition check (OS release, python3 version, Docker
daemon, data directory) and reports all failures at once. Exits non-zero
when any precondition is unmet.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			options := &doctor.Options{
				ConfigPath: configPath,
			}

			return doctor.Run(ctx, options)
		},
	}
)

// Execute runs the stand-doctor CLI and exits with non-zero status on error.
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
}

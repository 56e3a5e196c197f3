package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/service/provision"
	"github.com/semenovdl/review-stand/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel controls logging verbosity.
	logLevel string

	// rootCmd represents the base command for provisioning the stand.
	rootCmd = &cobra.Command{
		Use:   "stand-provision",
		Short: "Provision the review stand end to end.",
		Long: `Runs the idempotent provisioning workflow for the review stand:

Preconditions are checked first (OS release, python3, Docker daemon).
The dataset is acquired through a checksum gate and enriched by the external
pipeline, the database containers are started and polled for readiness, the
data is imported once, and finally the app is launched on the configured
bind address. Progress is recorded in a state file, so re-running resumes
where the previous run stopped and never repeats completed work.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			options := &provision.Options{
				ConfigPath: configPath,
			}

			return provision.Run(ctx, options)
		},
	}
)

// Execute runs the stand-provision CLI and exits with non-zero status on error.
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

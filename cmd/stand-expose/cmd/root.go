package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/service/expose"
	"github.com/semenovdl/review-stand/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel controls logging verbosity.
	logLevel string
	// domain overrides the configured domain for HTTPS setup.
	domain string
	// skipFirewall leaves ufw untouched.
	skipFirewall bool

	// rootCmd represents the base command for exposing the stand to the network.
	rootCmd = &cobra.Command{
		Use:   "stand-expose",
		Short: "Configure firewall rules and optional HTTPS for the stand.",
		Long: `Opens SSH and the app port in ufw and enables the firewall.

When a domain is configured (settings file or --domain), a Caddy reverse
proxy site is written for it, giving the stand automatic HTTPS. The site
config is created once and left untouched afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			applyLogLevel()

			options := &expose.Options{
				ConfigPath:   configPath,
				Domain:       domain,
				SkipFirewall: skipFirewall,
			}

			return expose.Run(ctx, options)
		},
	}
)

// Execute runs the stand-expose CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&domain, "domain", "d", "", "domain name for HTTPS reverse proxy setup")
	rootCmd.Flags().BoolVar(&skipFirewall, "skip-firewall", false, "do not touch ufw rules")
}

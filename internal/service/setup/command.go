package setup

import (
	"context"
	"fmt"

	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/secrets"
)

// Options are inputs accepted by the setup entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// APIKey skips the interactive prompt when provided (CI, scripted installs).
	APIKey string
}

// Run materializes the application secrets file. The existing file is never
// touched: re-running setup against a configured stand is a no-op.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stand-setup")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if secrets.Exists(cfg.EnvFile) {
		logger.InfoKV(ctx, "Secrets already materialized, leaving untouched", "path", cfg.EnvFile)
		return nil
	}

	values, err := solicit(opts, secrets.NewPrompter())
	if err != nil {
		return err
	}

	if err = secrets.Materialize(cfg.EnvFile, values); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Secrets written", "path", cfg.EnvFile)

	return nil
}

// solicit gathers configuration values, prompting where options leave gaps.
// The required secret is validated by Materialize before any file is created.
func solicit(opts *Options, prompter *secrets.Prompter) (*secrets.Values, error) {
	values := &secrets.Values{APIKey: opts.APIKey}

	if values.APIKey == "" {
		values.APIKey = prompter.AskSecret("OpenRouter API key")
	}

	values.DBHost = prompter.Ask("Database host", secrets.DefaultDBHost)
	values.DBPort = prompter.Ask("Database port", secrets.DefaultDBPort)
	values.DBName = prompter.Ask("Database name", secrets.DefaultDBName)
	values.DBUser = prompter.Ask("Database user", secrets.DefaultDBUser)
	values.RateLimit = prompter.Ask("LLM rate limit (requests per second)", secrets.DefaultRateLimit)

	if err := values.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("prepare secrets: %w", err)
	}

	return values, nil
}

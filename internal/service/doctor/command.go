package doctor

import (
	"context"
	"errors"
	"os"

	"github.com/semenovdl/review-stand/internal/command"
	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/preflight"
)

// Options are inputs accepted by the doctor entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// Run executes the preflight checks standalone and reports every result.
// The settings file is optional here: doctor is typically the first command
// run on a fresh machine.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stand-doctor")

	dataDir := "data"

	cfg, err := config.Load(opts.ConfigPath)
	switch {
	case err == nil:
		dataDir = cfg.DataDir
	case errors.Is(err, os.ErrNotExist):
		logger.Info(ctx, "No settings file found, checking with defaults")
	default:
		return err
	}

	results := preflight.Run(ctx, preflight.Default(command.NewExecRunner(), dataDir))

	if err := preflight.Failed(results); err != nil {
		return err
	}

	logger.Info(ctx, "All preconditions satisfied")

	return nil
}

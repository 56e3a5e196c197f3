package expose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/semenovdl/review-stand/internal/command"
	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
)

// DefaultCaddySiteDir is where per-domain reverse proxy configs are dropped.
const DefaultCaddySiteDir = "/etc/caddy/conf.d"

// siteFileMode is world-readable; the site config carries no secrets.
const siteFileMode os.FileMode = 0o644

// Options are inputs accepted by the expose entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Domain overrides the configured domain for HTTPS setup.
	Domain string
	// SkipFirewall leaves ufw untouched (already managed elsewhere).
	SkipFirewall bool
	// CaddySiteDir overrides the reverse proxy config directory.
	CaddySiteDir string
}

// Run configures the firewall and, when a domain is set, HTTPS reverse proxying.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stand-expose")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	runner := command.NewExecRunner()

	return run(ctx, cfg, opts, runner)
}

// run is the testable body of the command.
func run(ctx context.Context, cfg *config.Config, opts *Options, runner command.Runner) error {
	if !opts.SkipFirewall {
		if err := configureFirewall(ctx, runner, cfg.AppPort); err != nil {
			return err
		}
	}

	domain := cfg.Domain
	if opts.Domain != "" {
		domain = opts.Domain
	}

	if domain == "" {
		logger.Info(ctx, "No domain configured, skipping HTTPS setup")
		return nil
	}

	siteDir := opts.CaddySiteDir
	if siteDir == "" {
		siteDir = DefaultCaddySiteDir
	}

	return configureDomain(ctx, runner, siteDir, domain, cfg.AppPort)
}

// configureFirewall opens SSH and the app port, then enables ufw.
// Each rule is applied through ufw's own idempotent semantics.
func configureFirewall(ctx context.Context, runner command.Runner, appPort int) error {
	rules := [][]string{
		{"allow", "OpenSSH"},
		{"allow", strconv.Itoa(appPort) + "/tcp"},
		{"--force", "enable"},
	}

	for _, rule := range rules {
		if _, err := runner.Run(ctx, "ufw", rule...); err != nil {
			return fmt.Errorf("ufw %s: %w", rule[0], err)
		}
	}

	logger.InfoKV(ctx, "Firewall configured", "app_port", appPort)

	return nil
}

// configureDomain writes the reverse proxy site config once and reloads Caddy.
// Caddy obtains and renews the certificate on its own.
func configureDomain(ctx context.Context, runner command.Runner, siteDir, domain string, appPort int) error {
	sitePath := filepath.Join(siteDir, domain+".conf")

	if _, err := os.Stat(sitePath); err == nil {
		logger.InfoKV(ctx, "Site config already present, leaving untouched", "path", sitePath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat site config: %w", err)
	}

	site := fmt.Sprintf("%s {\n\treverse_proxy 127.0.0.1:%d\n}\n", domain, appPort)

	if err := os.WriteFile(sitePath, []byte(site), siteFileMode); err != nil {
		return fmt.Errorf("write site config: %w", err)
	}

	if _, err := runner.Run(ctx, "systemctl", "reload", "caddy"); err != nil {
		return fmt.Errorf("reload caddy: %w", err)
	}

	logger.InfoKV(ctx, "Domain configured", "domain", domain, "site_config", sitePath)

	return nil
}

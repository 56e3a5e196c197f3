package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/semenovdl/review-stand/internal/artifact"
	"github.com/semenovdl/review-stand/internal/command"
	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/logger"
	"github.com/semenovdl/review-stand/internal/preflight"
	"github.com/semenovdl/review-stand/internal/readiness"
	"github.com/semenovdl/review-stand/internal/secrets"
	"github.com/semenovdl/review-stand/internal/service/common"
	"github.com/semenovdl/review-stand/internal/state"
)

var (
	errAlreadyRunning      = errors.New("another provisioning run is in progress")
	errSecretsMissing      = errors.New("secrets file not found, run stand-setup first")
	errEnrichedNotProduced = errors.New("pipeline finished but enriched artifact does not match its digest")
)

// appExecutable is the serving process launched from the virtual environment.
const appExecutable = "streamlit"

// Options are inputs accepted by the provisioner entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// provisioner holds the collaborators for a single provisioning run.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type provisioner struct {
	cfg    *config.Config    // Stand settings loaded from YAML.
	runner command.Runner    // External tool invocation.
	repo   state.Repository  // Provisioning state persistence.
	checks []preflight.Check // Environment preconditions.
	st     *state.State      // The state record threaded through phases.
	actor  *state.Actor      // Who is provisioning, for the audit trail.
}

// phase is one idempotent step of the workflow.
type phase struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes the provisioning workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "stand-provision")

	if IsProvisionerRunningNow(ctx) {
		return errAlreadyRunning
	}

	if err := createMarker(); err != nil {
		return fmt.Errorf("create provisioning marker: %w", err)
	}

	defer removeMarker()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	p := newProvisioner(cfg, command.NewExecRunner(), state.NewFileRepository(cfg.StateFile))

	if err = p.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Provisioning failed", "error", err)
		return err
	}

	logger.Info(ctx, "Provisioning completed")

	return nil
}

// newProvisioner wires a run with explicit collaborators; tests construct it directly.
func newProvisioner(cfg *config.Config, runner command.Runner, repo state.Repository) *provisioner {
	return &provisioner{
		cfg:    cfg,
		runner: runner,
		repo:   repo,
		checks: preflight.Default(runner, cfg.DataDir),
	}
}

// Run executes the workflow phases top to bottom, persisting the state
// record after every phase. Any failure aborts the run immediately.
func (p *provisioner) Run(ctx context.Context) error {
	if !secrets.Exists(p.cfg.EnvFile) {
		return errSecretsMissing
	}

	if err := p.loadState(ctx); err != nil {
		return err
	}

	phases := []phase{
		{"preflight", p.runPreflight},
		{"dependencies", p.ensureDependencies},
		{"dataset", p.ensureDataset},
		{"containers", p.ensureContainers},
		{"import", p.ensureImported},
		{"launch", p.launchApp},
	}

	for _, ph := range phases {
		phaseCtx := logger.WithKV(ctx, "phase", ph.name)

		logger.Info(phaseCtx, "Phase started")

		if err := ph.run(phaseCtx); err != nil {
			return fmt.Errorf("phase %s: %w", ph.name, err)
		}

		if err := p.saveState(phaseCtx); err != nil {
			return err
		}

		logger.Info(phaseCtx, "Phase finished")
	}

	return nil
}

// loadState reads the previous state record, starting fresh on a first run.
func (p *provisioner) loadState(ctx context.Context) error {
	st, err := p.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return err
		}

		st = state.New()
	}

	p.st = st

	actor, err := common.DetectActor()
	if err != nil {
		logger.Warnf(ctx, "Unable to detect actor: %v", err)
	} else {
		p.actor = actor
	}

	return nil
}

func (p *provisioner) saveState(ctx context.Context) error {
	p.st.Touch(p.actor)

	if err := p.repo.Save(ctx, p.st); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	return nil
}

// runPreflight verifies environment preconditions. Always executed in full.
func (p *provisioner) runPreflight(ctx context.Context) error {
	results := preflight.Run(ctx, p.checks)
	return preflight.Failed(results)
}

// ensureDependencies creates the virtual environment and installs packages once.
func (p *provisioner) ensureDependencies(ctx context.Context) error {
	venvPython := filepath.Join(p.cfg.VenvDir, "bin", "python3")

	if p.st.DependenciesReady {
		if _, err := os.Stat(venvPython); err == nil {
			logger.Info(ctx, "Runtime environment already installed")
			return nil
		}

		// The record says ready but the venv is gone; rebuild it.
		p.st.DependenciesReady = false
	}

	if _, err := os.Stat(venvPython); err != nil {
		if _, err = p.runner.Run(ctx, "python3", "-m", "venv", p.cfg.VenvDir); err != nil {
			return fmt.Errorf("create virtual environment: %w", err)
		}
	}

	pip := filepath.Join(p.cfg.VenvDir, "bin", "pip")
	if _, err := p.runner.Run(ctx, pip, "install", "-r", p.cfg.Requirements); err != nil {
		return fmt.Errorf("install requirements: %w", err)
	}

	p.st.DependenciesReady = true

	return nil
}

// ensureDataset acquires the enriched artifact through the checksum gate.
// When it is missing or corrupt: fetch the raw dataset (itself checksum
// gated), run the external convert/validate/enrich pipeline, then verify the
// result. A wrong digest after the pipeline is fatal.
func (p *provisioner) ensureDataset(ctx context.Context) error {
	ds := p.cfg.Dataset

	ok, err := artifact.Verify(ds.EnrichedFile, ds.EnrichedChecksum)
	if err != nil {
		return err
	}

	if ok {
		logger.InfoKV(ctx, "Enriched artifact already acquired", "path", ds.EnrichedFile)

		p.st.DatasetReady = true

		return nil
	}

	p.st.DatasetReady = false

	if err = artifact.Ensure(ctx, ds.RawFile, ds.RawChecksum, artifact.HTTPFetcher(ds.URL)); err != nil {
		return err
	}

	for _, program := range []string{p.cfg.Pipeline.Convert, p.cfg.Pipeline.Validate, p.cfg.Pipeline.Enrich} {
		if _, err = p.runner.Run(ctx, program); err != nil {
			return fmt.Errorf("pipeline stage %s: %w", program, err)
		}
	}

	ok, err = artifact.Verify(ds.EnrichedFile, ds.EnrichedChecksum)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s", errEnrichedNotProduced, ds.EnrichedFile)
	}

	p.st.DatasetReady = true

	return nil
}

// ensureContainers starts the database stack and waits for readiness.
// When the database already answers the probe, nothing is started.
func (p *provisioner) ensureContainers(ctx context.Context) error {
	if p.probeDatabase(ctx) == nil {
		logger.Info(ctx, "Database is already up")

		p.st.ContainersStarted = true

		return nil
	}

	if _, err := p.runner.Run(ctx, "docker", p.composeArgs("up", "-d")...); err != nil {
		return fmt.Errorf("start containers: %w", err)
	}

	poller := readiness.Poller{
		Interval:    p.cfg.PollInterval,
		MaxAttempts: p.cfg.PollAttempts,
	}

	if err := poller.Wait(ctx, p.probeDatabase); err != nil {
		return err
	}

	p.st.ContainersStarted = true

	return nil
}

// probeDatabase runs pg_isready inside the database container.
func (p *provisioner) probeDatabase(ctx context.Context) error {
	args := p.composeArgs("exec", "-T", p.cfg.DatabaseService, "pg_isready", "-U", p.cfg.DatabaseUser)

	_, err := p.runner.Run(ctx, "docker", args...)

	return err
}

// composeArgs builds docker compose arguments against the configured file.
func (p *provisioner) composeArgs(args ...string) []string {
	return append([]string{"compose", "-f", p.cfg.ComposeFile}, args...)
}

// ensureImported runs the database importer exactly once.
func (p *provisioner) ensureImported(ctx context.Context) error {
	if p.st.DataImported {
		logger.Info(ctx, "Database already imported")
		return nil
	}

	if _, err := p.runner.Run(ctx, p.cfg.Pipeline.Importer); err != nil {
		return fmt.Errorf("import database: %w", err)
	}

	p.st.DataImported = true

	return nil
}

// launchApp starts the serving process bound to the configured interface.
// An already running app is left untouched.
func (p *provisioner) launchApp(ctx context.Context) error {
	running, err := findProcessByName(appExecutable)
	if err != nil {
		return fmt.Errorf("inspect processes: %w", err)
	}

	if running {
		logger.Info(ctx, "App is already running")

		p.st.AppLaunched = true

		return nil
	}

	app := filepath.Join(p.cfg.VenvDir, "bin", appExecutable)
	err = p.runner.Start(ctx, app,
		"run", p.cfg.AppScript,
		"--server.address", p.cfg.BindAddress,
		"--server.port", strconv.Itoa(p.cfg.AppPort),
	)

	if err != nil {
		return fmt.Errorf("launch app: %w", err)
	}

	p.st.AppLaunched = true

	return nil
}

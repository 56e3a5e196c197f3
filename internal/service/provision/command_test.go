package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/semenovdl/review-stand/internal/command"
	"github.com/semenovdl/review-stand/internal/config"
	"github.com/semenovdl/review-stand/internal/state"
)

// fakeRunner records calls and lets tests script behavior per command line.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	onRun map[string]func() error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*command.Result, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if fn, ok := f.onRun[key]; ok {
		if err := fn(); err != nil {
			return &command.Result{ExitCode: 1}, err
		}
	}

	return &command.Result{}, nil
}

func (f *fakeRunner) Start(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "START "+strings.TrimSpace(name+" "+strings.Join(args, " ")))

	return nil
}

func (f *fakeRunner) called(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, call := range f.calls {
		if strings.Contains(call, substr) {
			return true
		}
	}

	return false
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// testStand builds a config rooted in a temp dir with a materialized env
// file and a raw dataset already in place.
func testStand(t *testing.T) (*config.Config, []byte) {
	t.Helper()

	dir := t.TempDir()
	raw := []byte("address=x\ttext=testing review\trating=5.\n")
	enriched := []byte("parquet with embeddings")

	cfg := &config.Config{
		DataDir: filepath.Join(dir, "data"),
		Dataset: config.Dataset{
			URL:              "https://example.com/dataset.tskv",
			RawFile:          filepath.Join(dir, "data", "raw.tskv"),
			RawChecksum:      digestOf(raw),
			EnrichedFile:     filepath.Join(dir, "data", "enriched.parquet"),
			EnrichedChecksum: digestOf(enriched),
		},
		Pipeline: config.Pipeline{
			Convert:  filepath.Join(dir, "bin", "convert"),
			Validate: filepath.Join(dir, "bin", "validate"),
			Enrich:   filepath.Join(dir, "bin", "enrich"),
			Importer: filepath.Join(dir, "bin", "import"),
		},
		ComposeFile: filepath.Join(dir, "docker-compose.yaml"),
		VenvDir:     filepath.Join(dir, ".venv"),
		EnvFile:     filepath.Join(dir, ".env"),
		StateFile:   filepath.Join(dir, "state.json"),
	}
	require.NoError(t, config.Validate(cfg))

	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.Dataset.RawFile, raw, 0o644))
	require.NoError(t, os.WriteFile(cfg.EnvFile, []byte("OPENROUTER_API_KEY=k\n"), 0o600))

	return cfg, enriched
}

func okProvisioner(cfg *config.Config, runner command.Runner) *provisioner {
	p := newProvisioner(cfg, runner, state.NewFileRepository(cfg.StateFile))
	p.checks = nil // Environment preconditions are covered by package preflight tests.

	return p
}

// TestRunFreshStand walks all phases on a clean machine.
func TestRunFreshStand(t *testing.T) {
	t.Parallel()

	cfg, enriched := testStand(t)

	runner := &fakeRunner{onRun: map[string]func() error{
		// The enrichment stage produces the artifact the gate expects.
		cfg.Pipeline.Enrich: func() error {
			return os.WriteFile(cfg.Dataset.EnrichedFile, enriched, 0o644)
		},
	}}

	p := okProvisioner(cfg, runner)
	require.NoError(t, p.Run(context.Background()))

	// Dependencies installed, pipeline executed, data imported.
	require.True(t, runner.called("-m venv"))
	require.True(t, runner.called("pip install"))
	require.True(t, runner.called(cfg.Pipeline.Convert))
	require.True(t, runner.called(cfg.Pipeline.Validate))
	require.True(t, runner.called(cfg.Pipeline.Enrich))
	require.True(t, runner.called(cfg.Pipeline.Importer))

	// State record reflects completion.
	st, err := state.NewFileRepository(cfg.StateFile).Load(context.Background())
	require.NoError(t, err)
	require.True(t, st.DependenciesReady)
	require.True(t, st.DatasetReady)
	require.True(t, st.ContainersStarted)
	require.True(t, st.DataImported)
	require.False(t, st.UpdatedAt.IsZero())
}

// TestRunIsIdempotent performs no acquisition, pipeline or import work when
// everything is already in place.
func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg, enriched := testStand(t)

	// Artifacts, venv and state from a previous successful run.
	require.NoError(t, os.WriteFile(cfg.Dataset.EnrichedFile, enriched, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.VenvDir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.VenvDir, "bin", "python3"), []byte("#!"), 0o755))

	repo := state.NewFileRepository(cfg.StateFile)
	st := state.New()
	st.DependenciesReady = true
	st.DatasetReady = true
	st.ContainersStarted = true
	st.DataImported = true
	st.AppLaunched = true
	require.NoError(t, repo.Save(context.Background(), st))

	envBefore, err := os.ReadFile(cfg.EnvFile)
	require.NoError(t, err)

	runner := &fakeRunner{}
	p := okProvisioner(cfg, runner)
	require.NoError(t, p.Run(context.Background()))

	require.False(t, runner.called("venv "))
	require.False(t, runner.called("pip install"))
	require.False(t, runner.called(cfg.Pipeline.Convert))
	require.False(t, runner.called(cfg.Pipeline.Enrich))
	require.False(t, runner.called(cfg.Pipeline.Importer))
	require.False(t, runner.called("up -d"))

	// Config/secrets untouched by the re-run.
	envAfter, err := os.ReadFile(cfg.EnvFile)
	require.NoError(t, err)
	require.Equal(t, envBefore, envAfter)
}

// TestRunResumesAfterPartialState picks up at the import phase when the
// containers are already healthy but the database was never loaded.
func TestRunResumesAfterPartialState(t *testing.T) {
	t.Parallel()

	cfg, enriched := testStand(t)

	require.NoError(t, os.WriteFile(cfg.Dataset.EnrichedFile, enriched, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.VenvDir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.VenvDir, "bin", "python3"), []byte("#!"), 0o755))

	repo := state.NewFileRepository(cfg.StateFile)
	st := state.New()
	st.DependenciesReady = true
	st.DatasetReady = true
	st.ContainersStarted = true
	require.NoError(t, repo.Save(context.Background(), st))

	runner := &fakeRunner{}
	p := okProvisioner(cfg, runner)
	require.NoError(t, p.Run(context.Background()))

	require.True(t, runner.called(cfg.Pipeline.Importer))
	require.False(t, runner.called(cfg.Pipeline.Enrich))

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.True(t, loaded.DataImported)
}

// TestRunCorruptEnrichedRerunsPipeline treats a truncated enriched artifact
// like a missing one.
func TestRunCorruptEnrichedRerunsPipeline(t *testing.T) {
	t.Parallel()

	cfg, enriched := testStand(t)

	require.NoError(t, os.WriteFile(cfg.Dataset.EnrichedFile, enriched[:4], 0o644))

	runner := &fakeRunner{onRun: map[string]func() error{
		cfg.Pipeline.Enrich: func() error {
			return os.WriteFile(cfg.Dataset.EnrichedFile, enriched, 0o644)
		},
	}}

	p := okProvisioner(cfg, runner)
	require.NoError(t, p.Run(context.Background()))
	require.True(t, runner.called(cfg.Pipeline.Enrich))
}

// TestRunPipelineWrongDigestIsFatal aborts when the pipeline output does not
// match the expected digest.
func TestRunPipelineWrongDigestIsFatal(t *testing.T) {
	t.Parallel()

	cfg, _ := testStand(t)

	runner := &fakeRunner{onRun: map[string]func() error{
		cfg.Pipeline.Enrich: func() error {
			return os.WriteFile(cfg.Dataset.EnrichedFile, []byte("unexpected output"), 0o644)
		},
	}}

	p := okProvisioner(cfg, runner)
	err := p.Run(context.Background())
	require.ErrorIs(t, err, errEnrichedNotProduced)

	// The importer must never run on bad data.
	require.False(t, runner.called(cfg.Pipeline.Importer))
}

// TestRunRequiresSecrets refuses to provision before stand-setup has run.
func TestRunRequiresSecrets(t *testing.T) {
	t.Parallel()

	cfg, _ := testStand(t)
	require.NoError(t, os.Remove(cfg.EnvFile))

	p := okProvisioner(cfg, &fakeRunner{})
	require.ErrorIs(t, p.Run(context.Background()), errSecretsMissing)
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/semenovdl/review-stand/internal/command"
	"github.com/semenovdl/review-stand/internal/logger"
)

// Minimum runtime versions required by the stand.
const (
	MinUbuntuVersion = "20.04"
	MinPythonVersion = "3.10"
)

// OSReleasePath is the standard location of the distribution identity file.
const OSReleasePath = "/etc/os-release"

var (
	// ErrPreconditionFailed wraps any unmet environment requirement.
	ErrPreconditionFailed = errors.New("precondition failed")

	errUnsupportedOS      = errors.New("unsupported operating system")
	errVersionTooOld      = errors.New("version below minimum")
	errNoVersionInOutput  = errors.New("no version in command output")
	errDockerNotAvailable = errors.New("docker daemon not available")
)

// Check is a single named precondition.
type Check struct {
	// Name identifies the check in reports and logs.
	Name string
	// Run performs the check, returning nil when the precondition holds.
	Run func(ctx context.Context) error
}

// Result pairs a check with its outcome.
type Result struct {
	// Name of the executed check.
	Name string
	// Err is nil when the precondition holds.
	Err error
}

// Run executes all checks and collects their results without short-circuiting,
// so the operator sees every unmet requirement at once.
func Run(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))

	for _, check := range checks {
		err := check.Run(ctx)
		if err != nil {
			logger.WarnKV(ctx, "Precondition failed", "check", check.Name, "error", err)
		} else {
			logger.InfoKV(ctx, "Precondition satisfied", "check", check.Name)
		}

		results = append(results, Result{Name: check.Name, Err: err})
	}

	return results
}

// Failed condenses results into a single error listing every failed check.
func Failed(results []Result) error {
	var failed []string

	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", result.Name, result.Err))
		}
	}

	if len(failed) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrPreconditionFailed, strings.Join(failed, "; "))
}

// Default returns the stand's standard precondition set.
func Default(runner command.Runner, dataDir string) []Check {
	return []Check{
		{Name: "os-release", Run: func(context.Context) error {
			return CheckOSRelease(OSReleasePath, MinUbuntuVersion)
		}},
		{Name: "python3", Run: func(ctx context.Context) error {
			return CheckPython(ctx, runner, MinPythonVersion)
		}},
		{Name: "docker", Run: func(ctx context.Context) error {
			return CheckDocker(ctx, runner)
		}},
		{Name: "data-dir", Run: func(context.Context) error {
			return CheckDataDir(dataDir)
		}},
	}
}

// CheckOSRelease verifies the host runs Ubuntu at or above the minimum release.
func CheckOSRelease(path, minVersion string) error {
	fields, err := parseOSRelease(path)
	if err != nil {
		return err
	}

	id := fields["ID"]
	if id != "ubuntu" {
		return fmt.Errorf("%w: %s", errUnsupportedOS, id)
	}

	return checkMinVersion("ubuntu "+fields["VERSION_ID"], fields["VERSION_ID"], minVersion)
}

// CheckPython verifies python3 is installed at or above the minimum version.
func CheckPython(ctx context.Context, runner command.Runner, minVersion string) error {
	result, err := runner.Run(ctx, "python3", "--version")
	if err != nil {
		return fmt.Errorf("python3 not available: %w", err)
	}

	// Output looks like "Python 3.10.12".
	parts := strings.Fields(result.Stdout)
	if len(parts) < 2 {
		return fmt.Errorf("%w: %q", errNoVersionInOutput, result.Stdout)
	}

	return checkMinVersion("python "+parts[1], parts[1], minVersion)
}

// CheckDocker verifies the docker CLI can reach a responsive daemon.
func CheckDocker(ctx context.Context, runner command.Runner) error {
	if _, err := runner.Run(ctx, "docker", "info"); err != nil {
		return fmt.Errorf("%w: %s", errDockerNotAvailable, err.Error())
	}

	return nil
}

// CheckDataDir ensures the dataset directory exists or can be created.
func CheckDataDir(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}

	return nil
}

// checkMinVersion compares a detected version against the minimum requirement.
func checkMinVersion(label, detected, minimum string) error {
	detectedVersion, err := goversion.NewVersion(detected)
	if err != nil {
		return fmt.Errorf("parse %s version: %w", label, err)
	}

	minimumVersion, err := goversion.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("parse minimum version: %w", err)
	}

	if detectedVersion.LessThan(minimumVersion) {
		return fmt.Errorf("%w: %s < %s", errVersionTooOld, label, minimum)
	}

	return nil
}

// parseOSRelease reads KEY=value pairs from an os-release style file.
func parseOSRelease(path string) (map[string]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read os-release: %w", err)
	}

	fields := make(map[string]string)

	for _, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		fields[key] = strings.Trim(value, `"`)
	}

	return fields, nil
}

package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRunCapturesOutput verifies stdout capture and zero exit status.
func TestRunCapturesOutput(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	result, err := r.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, "hello", result.Stdout)
}

// TestRunNonZeroExit verifies that a failing command surfaces an ExitError
// carrying its status and stderr.
func TestRunNonZeroExit(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	result, err := r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError

	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, result.ExitCode)
	require.Equal(t, "boom", result.Stderr)
	require.Contains(t, exitErr.Error(), "status 3")
}

// TestRunMissingBinary reports a plain error, not an ExitError.
func TestRunMissingBinary(t *testing.T) {
	t.Parallel()

	r := NewExecRunner()

	_, err := r.Run(context.Background(), "definitely-not-a-real-binary-42")
	require.Error(t, err)

	var exitErr *ExitError

	require.False(t, errors.As(err, &exitErr))
}

// TestRunHonorsWorkingDirectory checks the Dir field takes effect.
func TestRunHonorsWorkingDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o600))

	r := &ExecRunner{Dir: dir}

	result, err := r.Run(context.Background(), "ls")
	require.NoError(t, err)
	require.Contains(t, result.Stdout, "marker.txt")
}

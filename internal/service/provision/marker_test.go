package provision

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The marker lives in the working directory, so these tests pin it to a
// temp dir and cannot run in parallel with each other.

// chdir pins the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

// TestIsProvisionerRunningNowNoMarker reports no run in progress on a clean stand.
func TestIsProvisionerRunningNowNoMarker(t *testing.T) {
	chdir(t, t.TempDir())

	require.False(t, IsProvisionerRunningNow(context.Background()))
}

// TestIsProvisionerRunningNowFreshMarker blocks a second run while a marker is current.
func TestIsProvisionerRunningNowFreshMarker(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, createMarker())
	require.True(t, IsProvisionerRunningNow(context.Background()))

	removeMarker()
	require.False(t, IsProvisionerRunningNow(context.Background()))
}

// TestIsProvisionerRunningNowStaleMarkerRecovered cleans up a marker left
// behind by a dead run: no live provisioner process, marker older than its
// lifetime, so the guard removes it and lets the new run proceed.
func TestIsProvisionerRunningNowStaleMarkerRecovered(t *testing.T) {
	chdir(t, t.TempDir())

	require.NoError(t, createMarker())

	expired := time.Now().Add(-markerLifetime - time.Minute)
	require.NoError(t, os.Chtimes(MarkerFilename, expired, expired))

	require.False(t, IsProvisionerRunningNow(context.Background()))

	_, err := os.Stat(MarkerFilename)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRemoveMarkerWithoutMarker tolerates a marker that was never created.
func TestRemoveMarkerWithoutMarker(t *testing.T) {
	chdir(t, t.TempDir())

	removeMarker()

	_, err := os.Stat(MarkerFilename)
	require.ErrorIs(t, err, os.ErrNotExist)
}

package provision

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/semenovdl/review-stand/internal/logger"
)

const (
	// MarkerFilename marks that a provisioning run is in progress to avoid
	// concurrent execution against the same stand.
	MarkerFilename = "review-stand-provision-marker.bin"

	// markerLifetime is the period after which a stale marker is ignored.
	// Provisioning downloads a multi-gigabyte dataset, so the budget is generous.
	markerLifetime = 30 * time.Minute

	// provisionerExecutable is the binary name used for stale-marker recovery.
	provisionerExecutable = "stand-provision"
)

// IsProvisionerRunningNow checks presence of a marker file and attempts
// recovery if it looks stale.
func IsProvisionerRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The provisioning marker is too old, attempting cleanup")

		if err = terminateProcessByName(provisionerExecutable); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read provisioning marker: %v", err)

	return false
}

// createMarker writes the in-progress marker file.
func createMarker() error {
	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker deletes the marker if present.
func removeMarker() {
	if _, err := os.Stat(MarkerFilename); err == nil {
		_ = os.Remove(MarkerFilename)
	}
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// findProcessByName reports whether a process with the executable name is running.
func findProcessByName(processName string) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	for _, process := range processList {
		if process.Executable() == processName {
			return true, nil
		}
	}

	return false, nil
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/semenovdl/review-stand/internal/state"
)

// DetectActor gathers host and user information for the provisioning audit trail.
func DetectActor() (*state.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &state.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

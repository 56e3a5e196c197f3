package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/semenovdl/review-stand/internal/config"
)

// Repository defines persistence operations for the provisioning state.
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// FileRepository persists the provisioning state to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the state from disk.
func (r *FileRepository) Load(_ context.Context) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var s State
	if err = json.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return &s, nil
}

// Save writes the state to disk using JSON representation.
func (r *FileRepository) Save(_ context.Context, state *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

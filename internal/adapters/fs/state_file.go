package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// StateFileName is the name of the record file inside the state directory.
const StateFileName = "current_livestream.json"

// StateFileRepository implements ports.StateRepository using a JSON file.
type StateFileRepository struct {
	dir string
}

// NewStateFileRepository creates a new StateFileRepository for the given directory.
func NewStateFileRepository(dir string) *StateFileRepository {
	return &StateFileRepository{dir: dir}
}

// Load retrieves the saved record from disk.
// Returns (nil, nil) if no state file exists. A file that exists but does
// not hold a usable record yields a *domain.CorruptStateError.
func (r *StateFileRepository) Load(ctx context.Context) (*domain.Record, error) {
	path := r.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &domain.CorruptStateError{Path: path, Err: err}
	}
	if !rec.Valid() {
		return nil, &domain.CorruptStateError{Path: path, Err: errors.New("missing resourceId or createdAt")}
	}

	return &rec, nil
}

// Save persists the record atomically.
func (r *StateFileRepository) Save(ctx context.Context, record domain.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(r.Path(), append(data, '\n'), 0o600)
}

// Clear removes the state file.
func (r *StateFileRepository) Clear(ctx context.Context) error {
	err := os.Remove(r.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Dir returns the state directory.
func (r *StateFileRepository) Dir() string {
	return r.dir
}

// Path returns the full path to the state file.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, StateFileName)
}

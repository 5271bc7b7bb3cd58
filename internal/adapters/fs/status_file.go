package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/jobagent/internal/domain"
)

const statusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
type StatusFileRepository struct {
	dir string
}

// NewStatusFileRepository creates a new StatusFileRepository for the given directory.
func NewStatusFileRepository(dir string) *StatusFileRepository {
	return &StatusFileRepository{dir: dir}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.JobStatus, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.JobStatus{}, nil
		}
		return domain.JobStatus{}, err
	}

	var status domain.JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.JobStatus{}, err
	}

	return status, nil
}

// Save persists the status atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *StatusFileRepository) Save(ctx context.Context, status domain.JobStatus) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return filepath.Join(r.dir, statusFileName)
}

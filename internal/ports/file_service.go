package ports

import (
	"context"
	"time"
)

// TrackedFile is a file observed in the job directory.
type TrackedFile struct {
	Path     string
	Size     int64
	Modified time.Time
}

// FileService tracks the files a job produces.
type FileService interface {
	// Start begins watching dir.
	Start(ctx context.Context, dir string) error

	// Stop ends watching. It must be idempotent and return nil when the
	// service was never started.
	Stop() error

	// Files returns the tracked files, sorted by path.
	Files() []TrackedFile
}

package ports

import (
	"context"

	"github.com/bft-labs/jobagent/internal/domain"
)

// StatusRepository persists execution status.
// Implementations persist status to disk (or other storage) atomically.
type StatusRepository interface {
	// Load retrieves the last saved status.
	// Returns an empty status and nil error if no status exists.
	Load(ctx context.Context) (domain.JobStatus, error)

	// Save persists the status atomically.
	Save(ctx context.Context, status domain.JobStatus) error
}

package ports

import (
	"context"

	"github.com/bft-labs/jobagent/internal/domain"
)

// SpecResolver turns a job request into an executable specification.
// Errors that may succeed on retry are wrapped with statemachine.Transient.
type SpecResolver interface {
	Resolve(ctx context.Context, jobID string, req domain.JobRequest) (domain.JobSpecification, error)
}

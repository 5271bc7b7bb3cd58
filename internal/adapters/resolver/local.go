// Package resolver resolves job requests into specifications without a
// controller round trip.
package resolver

import (
	"context"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
)

// Defaults are the agent-wide values applied to fields a request leaves
// unset.
type Defaults struct {
	Timeout time.Duration
	Archive bool
	Cleanup domain.CleanupPolicy
	Env     map[string]string
}

// Local implements ports.SpecResolver by merging the request with agent
// defaults.
type Local struct {
	defaults Defaults
}

// NewLocal creates a resolver with the given defaults.
func NewLocal(defaults Defaults) *Local {
	if defaults.Cleanup == "" {
		defaults.Cleanup = domain.CleanupNone
	}
	return &Local{defaults: defaults}
}

// Resolve builds the specification for req. Request values win over
// defaults; environment maps are merged key by key.
func (l *Local) Resolve(ctx context.Context, jobID string, req domain.JobRequest) (domain.JobSpecification, error) {
	if err := ctx.Err(); err != nil {
		return domain.JobSpecification{}, err
	}
	if err := req.Validate(); err != nil {
		return domain.JobSpecification{}, err
	}

	spec := domain.JobSpecification{
		JobID:    jobID,
		Command:  append([]string(nil), req.CommandArgs...),
		Timeout:  l.defaults.Timeout,
		Archive:  l.defaults.Archive,
		Cleanup:  l.defaults.Cleanup,
		Metadata: req.Metadata,
		Criteria: req.Criteria,

		Attachments: append([]domain.Attachment(nil), req.Attachments...),
	}

	cfg := req.AgentConfig
	if cfg.Timeout > 0 {
		spec.Timeout = cfg.Timeout
	}
	if cfg.Archive != nil {
		spec.Archive = *cfg.Archive
	}
	if cfg.Cleanup != "" {
		spec.Cleanup = cfg.Cleanup
	}

	spec.Env = make(map[string]string, len(l.defaults.Env)+len(cfg.Env)+3)
	for k, v := range l.defaults.Env {
		spec.Env[k] = v
	}
	for k, v := range cfg.Env {
		spec.Env[k] = v
	}
	spec.Env["JOBAGENT_JOB_ID"] = jobID
	if req.Metadata.Name != "" {
		spec.Env["JOBAGENT_JOB_NAME"] = req.Metadata.Name
	}
	if req.Metadata.User != "" {
		spec.Env["JOBAGENT_JOB_USER"] = req.Metadata.User
	}
	return spec, nil
}

package app

import (
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
)

// ExecutionContext is the state shared by the stages of one execution.
// Fields are populated in state order; a stage may rely on every field set
// by the states before it.
type ExecutionContext struct {
	// Request is the job as submitted. Set before the run starts.
	Request domain.JobRequest

	// Set by INITIALIZE.
	JobID     string
	Agent     domain.AgentInfo
	ExecDir   string
	JobDir    string
	StartedAt time.Time

	// Set by RESOLVE_SPECIFICATION.
	Spec domain.JobSpecification

	// Set by CREATE_JOB_DIRECTORY.
	EnvFile     string
	SetupScript string
	Attachments []string

	// Set by LAUNCH_JOB.
	Process ports.Process

	// Set by MONITOR_JOB once the process exits on its own.
	ExitCode *int

	// Set by COLLECT_ARCHIVE.
	Archive *domain.Archive
	Files   []ports.TrackedFile
}

// NewExecutionContext creates the context for one run of req.
func NewExecutionContext(req domain.JobRequest) *ExecutionContext {
	return &ExecutionContext{Request: req}
}

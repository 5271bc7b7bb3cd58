package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/jobagent/internal/domain"
	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
	"github.com/bft-labs/jobagent/pkg/statemachine"
)

// StatusRepositoryFactory opens the status repository of an execution
// directory.
type StatusRepositoryFactory func(execDir string) ports.StatusRepository

// Recorder persists the status of one execution after every transition.
// It implements statemachine.EventEmitter. Persistence failures are logged
// and never affect the execution.
type Recorder struct {
	c       *ExecutionContext
	open    StatusRepositoryFactory
	logger  log.Logger
	now     func() time.Time
	forward statemachine.EventEmitter

	mu   sync.Mutex
	repo ports.StatusRepository
	dir  string
	path []string
}

// NewRecorder creates a recorder for c. forward, if set, receives every
// event after it is recorded.
func NewRecorder(c *ExecutionContext, open StatusRepositoryFactory, logger log.Logger, forward statemachine.EventEmitter) *Recorder {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Recorder{
		c:       c,
		open:    open,
		logger:  logger,
		now:     time.Now,
		forward: forward,
	}
}

// OnStateChange saves a snapshot with current as the state.
func (r *Recorder) OnStateChange(previous, current statemachine.State, reason string) {
	r.mu.Lock()
	r.path = append(r.path, previous.String())
	status := r.snapshotLocked(current)
	r.mu.Unlock()

	if !current.IsTerminal() {
		r.save(status)
	}
	if r.forward != nil {
		r.forward.OnStateChange(previous, current, reason)
	}
}

// OnStageOutcome forwards stage outcomes.
func (r *Recorder) OnStageOutcome(ev statemachine.Event) {
	if r.forward != nil {
		r.forward.OnStageOutcome(ev)
	}
}

// Finish saves the final status and returns it.
func (r *Recorder) Finish(final statemachine.FinalStatus) domain.JobStatus {
	r.mu.Lock()
	status := r.snapshotLocked(final.State)
	r.mu.Unlock()

	status.Terminal = true
	status.Reason = final.Reason.String()
	status.ExitCode = final.ExitCode()
	status.Degraded = final.Degraded
	status.Path = make([]string, len(final.Path))
	for i, s := range final.Path {
		status.Path[i] = s.String()
	}
	if final.Err != nil {
		status.Error = final.Err.Error()
		if final.State == statemachine.StateFailed {
			status.FailedState = final.FailedState.String()
		}
	}
	for _, err := range final.TeardownErrors {
		status.TeardownErrors = append(status.TeardownErrors, err.Error())
	}
	if !final.StartedAt.IsZero() {
		status.StartedAt = final.StartedAt
	}
	finished := final.FinishedAt
	if finished.IsZero() {
		finished = r.now()
	}
	status.FinishedAt = &finished

	r.save(status)
	return status
}

func (r *Recorder) snapshotLocked(state statemachine.State) domain.JobStatus {
	c := r.c
	return domain.JobStatus{
		JobID:       c.JobID,
		Agent:       c.Agent,
		State:       state.String(),
		Terminal:    state.IsTerminal(),
		Path:        append([]string(nil), r.path...),
		JobExitCode: c.ExitCode,
		Archive:     c.Archive,
		StartedAt:   c.StartedAt,
		UpdatedAt:   r.now().UTC(),
	}
}

func (r *Recorder) save(status domain.JobStatus) {
	if r.open == nil || r.c.ExecDir == "" {
		return
	}

	r.mu.Lock()
	if r.repo == nil || r.dir != r.c.ExecDir {
		r.dir = r.c.ExecDir
		r.repo = r.open(r.dir)
	}
	repo := r.repo
	r.mu.Unlock()

	if err := repo.Save(context.Background(), status); err != nil {
		r.logger.Warn("failed to save job status",
			log.String("job_id", status.JobID),
			log.String("state", status.State),
			log.Err(err),
		)
	}
}

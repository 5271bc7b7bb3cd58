package statemachine

import (
	"context"
	"errors"
	"time"
)

// Reason classifies how an execution ended.
type Reason int

const (
	ReasonSuccess Reason = iota
	ReasonJobFailure
	ReasonInternalFailure
	ReasonCancelled
)

// Process exit codes, one per reason.
const (
	ExitSuccess         = 0
	ExitJobFailure      = 1
	ExitInternalFailure = 2
	ExitCancelled       = 3
)

// String returns a human-readable representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonSuccess:
		return "success"
	case ReasonJobFailure:
		return "job-failure"
	case ReasonInternalFailure:
		return "internal-failure"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ExitCode maps the reason to the agent process exit code.
func (r Reason) ExitCode() int {
	switch r {
	case ReasonSuccess:
		return ExitSuccess
	case ReasonJobFailure:
		return ExitJobFailure
	case ReasonCancelled:
		return ExitCancelled
	default:
		return ExitInternalFailure
	}
}

// FinalStatus is the result of one execution.
type FinalStatus struct {
	State       State
	Reason      Reason
	FailedState State
	Err         error

	// Degraded is set when at least one teardown stage failed.
	Degraded       bool
	TeardownErrors []error

	// Path lists the states whose stages ran, in order.
	Path []State

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the execution.
func (f FinalStatus) Duration() time.Duration {
	return f.FinishedAt.Sub(f.StartedAt)
}

// ExitCode returns the process exit code for the status.
func (f FinalStatus) ExitCode() int {
	return f.Reason.ExitCode()
}

// classify maps a fatal stage error to a reason.
func classify(ctx context.Context, err error) Reason {
	switch {
	case errors.Is(err, ErrCancelled), ctx.Err() != nil:
		return ReasonCancelled
	case errors.Is(err, ErrJobFailed):
		return ReasonJobFailure
	default:
		return ReasonInternalFailure
	}
}

// Event describes the outcome of one stage attempt.
type Event struct {
	State    State
	Outcome  OutcomeKind
	Attempt  int
	Duration time.Duration
	Err      error
	Teardown bool
}

// EventEmitter observes an execution. Calls are made synchronously from the
// engine goroutine.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
	OnStageOutcome(event Event)
}

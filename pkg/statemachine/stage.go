package statemachine

import "context"

// OutcomeKind classifies the result of one stage attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

// String returns a human-readable representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of one stage attempt.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Success reports a completed attempt.
func Success() Outcome { return Outcome{Kind: OutcomeSuccess} }

// Retryable reports a transient failure worth another attempt.
func Retryable(err error) Outcome { return Outcome{Kind: OutcomeRetryable, Err: err} }

// Fatal reports a failure the stage cannot resolve.
func Fatal(err error) Outcome { return Outcome{Kind: OutcomeFatal, Err: err} }

// FromError maps err to an outcome: nil is success, transient errors are
// retryable and everything else is fatal.
func FromError(err error) Outcome {
	switch {
	case err == nil:
		return Success()
	case IsTransient(err):
		return Retryable(err)
	default:
		return Fatal(err)
	}
}

// CleanupAction records that a service was started and must be stopped by
// the stage bound to Teardown.
type CleanupAction struct {
	Service  string
	Teardown State
}

// CleanupRegistry accepts cleanup actions from stages.
type CleanupRegistry interface {
	Register(action CleanupAction)
}

// Stage is the executable behaviour of one state.
//
// Stages may block, read and write the shared context c, and must surface
// every error they cannot resolve as a Retryable or Fatal outcome. A stage
// that starts a long-lived service registers its cleanup action before
// returning Success.
type Stage[C any] interface {
	State() State
	Attempt(ctx context.Context, c C, cleanups CleanupRegistry) Outcome
}

// StageFunc adapts a function into a Stage bound to a fixed state.
type StageFunc[C any] struct {
	state State
	fn    func(context.Context, C, CleanupRegistry) Outcome
}

// NewStage returns a Stage for state that calls fn.
func NewStage[C any](state State, fn func(context.Context, C, CleanupRegistry) Outcome) StageFunc[C] {
	return StageFunc[C]{state: state, fn: fn}
}

// State returns the bound state.
func (s StageFunc[C]) State() State { return s.state }

// Attempt calls the wrapped function.
func (s StageFunc[C]) Attempt(ctx context.Context, c C, cleanups CleanupRegistry) Outcome {
	return s.fn(ctx, c, cleanups)
}

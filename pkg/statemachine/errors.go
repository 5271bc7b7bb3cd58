package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks a failure caused by an external stop request
	// (controller kill, signal, or local timeout).
	ErrCancelled = errors.New("execution cancelled")

	// ErrJobFailed marks a failure of the user's job rather than of the agent.
	ErrJobFailed = errors.New("job failed")

	// ErrInvalidTable is returned when a transition table fails validation.
	ErrInvalidTable = errors.New("invalid transition table")

	// ErrMissingStage is returned when a non-terminal state has no stage bound.
	ErrMissingStage = errors.New("missing stage")

	// ErrTransitionLimit is returned if an execution exceeds the number of
	// transitions its table allows.
	ErrTransitionLimit = errors.New("transition limit exceeded")
)

// TransientError wraps a fault that may succeed when retried, such as a
// network timeout talking to the controller.
type TransientError struct {
	Err error
}

// Transient wraps err as a TransientError. It returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether any error in err's chain is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// StageError records the state whose stage failed and how many attempts it made.
type StageError struct {
	State    State
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.State, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

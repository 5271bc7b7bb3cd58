package statemachine

import (
	"context"
	"fmt"
)

// Stopper is any service that can be shut down.
// Stop must be idempotent: stopping a service that was never started, or
// stopping it twice, returns nil.
type Stopper interface {
	Stop() error
}

// StopServiceStage is the shared teardown stage for every service that
// exposes Stop. It is bound to a fixed state and holds one service.
//
// A transient Stop error is retryable; any other error is fatal, which
// during teardown only degrades the final status.
type StopServiceStage[C any] struct {
	state   State
	service string
	stopper Stopper
}

// NewStopServiceStage binds stopper to state. name identifies the service
// in logs and errors.
func NewStopServiceStage[C any](state State, name string, stopper Stopper) *StopServiceStage[C] {
	return &StopServiceStage[C]{state: state, service: name, stopper: stopper}
}

// State returns the bound state.
func (s *StopServiceStage[C]) State() State { return s.state }

// Attempt stops the bound service.
func (s *StopServiceStage[C]) Attempt(_ context.Context, _ C, _ CleanupRegistry) Outcome {
	if s.stopper == nil {
		return Success()
	}
	if err := s.stopper.Stop(); err != nil {
		return FromError(fmt.Errorf("stop %s: %w", s.service, err))
	}
	return Success()
}

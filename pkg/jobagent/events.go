package jobagent

import (
	"time"

	"github.com/bft-labs/jobagent/pkg/statemachine"
)

// StateChangeEvent reports a transition between two states.
type StateChangeEvent struct {
	JobID    string
	Previous string
	Current  string
	Reason   string
}

// StageEvent reports the outcome of one stage attempt.
type StageEvent struct {
	JobID    string
	State    string
	Outcome  string
	Attempt  int
	Duration time.Duration
	Error    error
	Teardown bool
}

// EventHandler receives execution events. Methods are called synchronously
// from the engine goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnStageOutcome(event StageEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnStageOutcome does nothing.
func (BaseEventHandler) OnStageOutcome(StageEvent) {}

// eventEmitterWrapper adapts EventHandler to statemachine.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
	jobID   func() string
}

func (e *eventEmitterWrapper) OnStateChange(previous, current statemachine.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		JobID:    e.jobID(),
		Previous: previous.String(),
		Current:  current.String(),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnStageOutcome(ev statemachine.Event) {
	if e.handler == nil {
		return
	}
	e.handler.OnStageOutcome(StageEvent{
		JobID:    e.jobID(),
		State:    ev.State.String(),
		Outcome:  ev.Outcome.String(),
		Attempt:  ev.Attempt,
		Duration: ev.Duration,
		Error:    ev.Err,
		Teardown: ev.Teardown,
	})
}

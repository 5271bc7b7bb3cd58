package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/jobagent/pkg/log"
)

// DefaultTeardownTimeout bounds the teardown of pending cleanup actions.
const DefaultTeardownTimeout = 30 * time.Second

// Engine runs stages over a transition table. One Engine may run many
// executions, one at a time or concurrently, since all per-run state lives
// in Run.
type Engine[C any] struct {
	table  *Table
	stages map[State]Stage[C]

	logger          log.Logger
	emitter         EventEmitter
	backoffInitial  time.Duration
	backoffMax      time.Duration
	teardownTimeout time.Duration
	jobResult       func(C) error
	now             func() time.Time
}

// Option configures an Engine.
type Option[C any] func(*Engine[C])

// WithLogger sets the engine logger.
func WithLogger[C any](logger log.Logger) Option[C] {
	return func(e *Engine[C]) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventEmitter sets an observer for transitions and stage outcomes.
func WithEventEmitter[C any](emitter EventEmitter) Option[C] {
	return func(e *Engine[C]) {
		e.emitter = emitter
	}
}

// WithBackoff sets the delay bounds between retry attempts.
func WithBackoff[C any](initial, max time.Duration) Option[C] {
	return func(e *Engine[C]) {
		e.backoffInitial = initial
		e.backoffMax = max
	}
}

// WithTeardownTimeout bounds the teardown run after a failure.
// Zero disables the bound.
func WithTeardownTimeout[C any](d time.Duration) Option[C] {
	return func(e *Engine[C]) {
		e.teardownTimeout = d
	}
}

// WithJobResult sets a check evaluated when an execution reaches DONE.
// A non-nil error turns the final reason into a job failure.
func WithJobResult[C any](fn func(C) error) Option[C] {
	return func(e *Engine[C]) {
		e.jobResult = fn
	}
}

// WithClock overrides the time source used for status timestamps.
func WithClock[C any](now func() time.Time) Option[C] {
	return func(e *Engine[C]) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine binds stages to the states of table. Every non-terminal state
// must have exactly one stage.
func NewEngine[C any](table *Table, stages []Stage[C], opts ...Option[C]) (*Engine[C], error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidTable)
	}
	bound := make(map[State]Stage[C], len(stages))
	for _, st := range stages {
		s := st.State()
		if _, ok := table.Lookup(s); !ok {
			return nil, fmt.Errorf("%w: stage bound to state %s not in table", ErrInvalidTable, s)
		}
		if _, dup := bound[s]; dup {
			return nil, fmt.Errorf("%w: duplicate stage for %s", ErrInvalidTable, s)
		}
		bound[s] = st
	}
	for _, s := range table.States() {
		if _, ok := bound[s]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingStage, s)
		}
	}

	e := &Engine[C]{
		table:           table,
		stages:          bound,
		logger:          log.NewNoopLogger(),
		backoffInitial:  DefaultBackoffInitial,
		backoffMax:      DefaultBackoffMax,
		teardownTimeout: DefaultTeardownTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run drives one execution from initial until a terminal state and returns
// its final status. ctx cancellation is observed between stages, during
// retry backoff and by every blocking stage; it diverts the execution to the
// teardown branch with reason cancelled.
func (e *Engine[C]) Run(ctx context.Context, initial State, c C) FinalStatus {
	status := FinalStatus{StartedAt: e.now()}
	cleanups := &cleanupStack{}
	current := initial
	limit := e.table.Len() + 1

	e.logger.Info("execution started", log.Stringer("state", initial))

	for steps := 0; !current.IsTerminal(); steps++ {
		if steps > limit {
			e.fail(ctx, &status, current, 0, ErrTransitionLimit)
			e.teardown(ctx, c, cleanups, &status)
			current = e.transition(current, StateFailed, "transition limit")
			break
		}

		tr, ok := e.table.Lookup(current)
		if !ok {
			e.fail(ctx, &status, current, 0, fmt.Errorf("%w: %s", ErrMissingStage, current))
			e.teardown(ctx, c, cleanups, &status)
			current = e.transition(current, StateFailed, "unknown state")
			break
		}

		if tr.Teardown {
			e.runTeardownState(ctx, current, tr, c, cleanups, &status)
			current = e.transition(current, tr.Next, "teardown complete")
			continue
		}

		if err := ctx.Err(); err != nil {
			e.fail(ctx, &status, current, 0, fmt.Errorf("%w before %s: %w", ErrCancelled, current, context.Cause(ctx)))
			e.teardown(ctx, c, cleanups, &status)
			current = e.transition(current, tr.OnFailure, status.Reason.String())
			continue
		}

		status.Path = append(status.Path, current)
		out, attempts := e.attempt(ctx, current, tr, c, cleanups, false)
		if out.Kind == OutcomeSuccess {
			current = e.transition(current, tr.Next, "success")
			continue
		}

		e.fail(ctx, &status, current, attempts, out.Err)
		e.teardown(ctx, c, cleanups, &status)
		current = e.transition(current, tr.OnFailure, status.Reason.String())
	}

	status.State = current
	if current == StateDone && status.Err == nil && e.jobResult != nil {
		if err := e.jobResult(c); err != nil {
			status.Reason = ReasonJobFailure
			status.Err = err
		}
	}
	if current == StateFailed && status.Err == nil {
		status.Reason = ReasonInternalFailure
		status.Err = fmt.Errorf("reached %s without a recorded error", StateFailed)
	}
	status.FinishedAt = e.now()

	e.logger.Info("execution finished",
		log.Stringer("state", status.State),
		log.Stringer("reason", status.Reason),
		log.Bool("degraded", status.Degraded),
		log.Duration("duration", status.Duration()),
	)
	return status
}

// attempt invokes the stage for state, retrying retryable outcomes up to the
// state's budget. The returned outcome is never retryable.
func (e *Engine[C]) attempt(ctx context.Context, state State, tr Transition, c C, reg CleanupRegistry, teardown bool) (Outcome, int) {
	stage := e.stages[state]
	b := newBackoff(e.backoffInitial, e.backoffMax)

	for attempt := 1; ; attempt++ {
		start := e.now()
		out := e.invoke(ctx, stage, c, reg)
		e.observe(Event{
			State:    state,
			Outcome:  out.Kind,
			Attempt:  attempt,
			Duration: e.now().Sub(start),
			Err:      out.Err,
			Teardown: teardown,
		})

		if out.Kind != OutcomeRetryable {
			return out, attempt
		}
		if attempt > tr.Retries {
			return Fatal(out.Err), attempt
		}

		delay := b.Next()
		select {
		case <-ctx.Done():
			return Fatal(fmt.Errorf("%w while retrying %s: %w", ErrCancelled, state, out.Err)), attempt
		case <-time.After(delay):
		}
	}
}

// invoke runs one attempt and converts a panic into a fatal outcome.
func (e *Engine[C]) invoke(ctx context.Context, stage Stage[C], c C, reg CleanupRegistry) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fatal(fmt.Errorf("stage %s panicked: %v", stage.State(), r))
		}
	}()
	out = stage.Attempt(ctx, c, reg)
	if out.Kind != OutcomeSuccess && out.Err == nil {
		out.Err = fmt.Errorf("stage %s reported %s without an error", stage.State(), out.Kind)
	}
	return out
}

// runTeardownState runs a teardown state reached on the normal path. It is a
// no-op when no pending action names the state.
func (e *Engine[C]) runTeardownState(ctx context.Context, state State, tr Transition, c C, cleanups *cleanupStack, status *FinalStatus) {
	action, ok := cleanups.take(state)
	if !ok {
		e.logger.Debug("nothing to tear down", log.Stringer("state", state))
		return
	}
	tctx, cancel := e.teardownContext(ctx)
	defer cancel()

	status.Path = append(status.Path, state)
	e.stop(tctx, action, tr, c, status)
}

// teardown stops every pending cleanup action, newest first.
func (e *Engine[C]) teardown(ctx context.Context, c C, cleanups *cleanupStack, status *FinalStatus) {
	actions := cleanups.drain()
	if len(actions) == 0 {
		return
	}
	tctx, cancel := e.teardownContext(ctx)
	defer cancel()

	e.logger.Info("tearing down started services", log.Int("pending", len(actions)))
	for _, action := range actions {
		tr, ok := e.table.Lookup(action.Teardown)
		if !ok {
			err := fmt.Errorf("%w: teardown state %s for %s", ErrMissingStage, action.Teardown, action.Service)
			e.degrade(status, action, err)
			continue
		}
		status.Path = append(status.Path, action.Teardown)
		e.stop(tctx, action, tr, c, status)
	}
}

func (e *Engine[C]) stop(ctx context.Context, action CleanupAction, tr Transition, c C, status *FinalStatus) {
	out, attempts := e.attempt(ctx, action.Teardown, tr, c, discardRegistry{}, true)
	if out.Kind == OutcomeSuccess {
		return
	}
	e.degrade(status, action, &StageError{State: action.Teardown, Attempts: attempts, Err: out.Err})
}

func (e *Engine[C]) degrade(status *FinalStatus, action CleanupAction, err error) {
	status.Degraded = true
	status.TeardownErrors = append(status.TeardownErrors, err)
	e.logger.Warn("teardown failed, continuing",
		log.String("service", action.Service),
		log.Stringer("state", action.Teardown),
		log.Err(err),
	)
}

// teardownContext detaches teardown from the execution's cancellation so a
// cancelled job still releases its services.
func (e *Engine[C]) teardownContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if e.teardownTimeout > 0 {
		return context.WithTimeout(base, e.teardownTimeout)
	}
	return context.WithCancel(base)
}

// fail records the first fatal failure of the execution.
func (e *Engine[C]) fail(ctx context.Context, status *FinalStatus, state State, attempts int, err error) {
	if status.Err != nil {
		e.logger.Error("additional failure after execution already failed",
			log.Stringer("state", state),
			log.Err(err),
		)
		return
	}
	status.FailedState = state
	status.Reason = classify(ctx, err)
	status.Err = &StageError{State: state, Attempts: attempts, Err: err}
	e.logger.Error("stage failed",
		log.Stringer("state", state),
		log.Int("attempts", attempts),
		log.Stringer("reason", status.Reason),
		log.Err(err),
	)
}

func (e *Engine[C]) transition(from, to State, reason string) State {
	e.logger.Info("state transition",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("reason", reason),
	)
	if e.emitter != nil {
		e.emitter.OnStateChange(from, to, reason)
	}
	return to
}

func (e *Engine[C]) observe(ev Event) {
	fields := []log.Field{
		log.Stringer("state", ev.State),
		log.Stringer("outcome", ev.Outcome),
		log.Int("attempt", ev.Attempt),
		log.Duration("duration", ev.Duration),
		log.Bool("teardown", ev.Teardown),
	}
	switch ev.Outcome {
	case OutcomeSuccess:
		e.logger.Info("stage completed", fields...)
	default:
		e.logger.Warn("stage attempt failed", append(fields, log.Err(ev.Err))...)
	}
	if e.emitter != nil {
		e.emitter.OnStageOutcome(ev)
	}
}

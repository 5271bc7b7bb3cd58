package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/jobagent/pkg/log"
)

// Task is a named unit of work over a shared context of type C.
type Task[C any] interface {
	Name() string
	Run(ctx context.Context, c C) error
}

// TaskFunc adapts a function into a Task.
type TaskFunc[C any] struct {
	name string
	fn   func(context.Context, C) error
}

// NewTask returns a Task that calls fn.
func NewTask[C any](name string, fn func(context.Context, C) error) TaskFunc[C] {
	return TaskFunc[C]{name: name, fn: fn}
}

// Name returns the task name.
func (t TaskFunc[C]) Name() string { return t.name }

// Run calls the wrapped function.
func (t TaskFunc[C]) Run(ctx context.Context, c C) error { return t.fn(ctx, c) }

// TaskError reports which task stopped the workflow.
type TaskError struct {
	Index int
	Name  string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Executor runs task lists in order and stops at the first failure.
type Executor[C any] struct {
	logger log.Logger
}

// NewExecutor creates an executor. A nil logger discards output.
func NewExecutor[C any](logger log.Logger) *Executor[C] {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Executor[C]{logger: logger}
}

// ExecuteWorkflow runs tasks in order and reports whether all of them succeeded.
func (e *Executor[C]) ExecuteWorkflow(ctx context.Context, tasks []Task[C], c C) bool {
	return e.Run(ctx, tasks, c) == nil
}

// Run runs tasks in order. It returns a *TaskError for the first task that
// fails, or for the task that was about to run when ctx was canceled.
// Tasks after that one are never invoked.
func (e *Executor[C]) Run(ctx context.Context, tasks []Task[C], c C) error {
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return &TaskError{Index: i, Name: task.Name(), Err: err}
		}

		start := time.Now()
		err := task.Run(ctx, c)
		if err != nil {
			e.logger.Warn("workflow task failed",
				log.Int("index", i),
				log.String("task", task.Name()),
				log.Int("total", len(tasks)),
				log.Err(err),
			)
			return &TaskError{Index: i, Name: task.Name(), Err: err}
		}

		e.logger.Debug("workflow task completed",
			log.Int("index", i),
			log.String("task", task.Name()),
			log.Duration("duration", time.Since(start)),
		)
	}
	return nil
}

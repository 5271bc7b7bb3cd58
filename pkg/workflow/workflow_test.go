package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls   []string
	effects map[string]bool
}

func recordingTask(name string, fail bool) Task[*recorder] {
	return NewTask(name, func(_ context.Context, r *recorder) error {
		r.calls = append(r.calls, name)
		r.effects[name] = true
		if fail {
			return errors.New(name + " failed")
		}
		return nil
	})
}

func newRecorder() *recorder {
	return &recorder{effects: map[string]bool{}}
}

func TestExecuteWorkflow_AllSucceed(t *testing.T) {
	r := newRecorder()
	tasks := []Task[*recorder]{
		recordingTask("a", false),
		recordingTask("b", false),
		recordingTask("c", false),
	}

	ok := NewExecutor[*recorder](nil).ExecuteWorkflow(context.Background(), tasks, r)

	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, r.calls)
}

func TestExecuteWorkflow_StopsAtFirstFailure(t *testing.T) {
	r := newRecorder()
	tasks := []Task[*recorder]{
		recordingTask("a", false),
		recordingTask("b", true),
		recordingTask("c", false),
	}

	ok := NewExecutor[*recorder](nil).ExecuteWorkflow(context.Background(), tasks, r)

	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, r.calls)
	assert.True(t, r.effects["a"])
	assert.True(t, r.effects["b"])
	assert.False(t, r.effects["c"], "task after the failing one must not run")
}

func TestRun_FailurePositions(t *testing.T) {
	const n = 5
	for k := 0; k < n; k++ {
		r := newRecorder()
		tasks := make([]Task[*recorder], n)
		for i := 0; i < n; i++ {
			tasks[i] = recordingTask(string(rune('a'+i)), i == k)
		}

		err := NewExecutor[*recorder](nil).Run(context.Background(), tasks, r)

		var te *TaskError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, k, te.Index)
		assert.Len(t, r.calls, k+1, "tasks at positions <= k run exactly once")
	}
}

func TestRun_EmptyList(t *testing.T) {
	err := NewExecutor[*recorder](nil).Run(context.Background(), nil, newRecorder())
	assert.NoError(t, err)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newRecorder()
	tasks := []Task[*recorder]{
		NewTask("cancel", func(_ context.Context, r *recorder) error {
			r.calls = append(r.calls, "cancel")
			cancel()
			return nil
		}),
		recordingTask("never", false),
	}

	err := NewExecutor[*recorder](nil).Run(ctx, tasks, r)

	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Index)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"cancel"}, r.calls)
}

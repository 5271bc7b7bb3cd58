package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		transitions map[State]Transition
	}{
		{
			name: "terminal state with transition",
			transitions: map[State]Transition{
				StateDone: {Next: StateFailed, OnFailure: StateFailed},
			},
		},
		{
			name: "negative retries",
			transitions: map[State]Transition{
				StateInitialize: {Next: StateDone, OnFailure: StateFailed, Retries: -1},
			},
		},
		{
			name: "unknown success target",
			transitions: map[State]Transition{
				StateInitialize: {Next: StateLaunchJob, OnFailure: StateFailed},
			},
		},
		{
			name: "unknown failure target",
			transitions: map[State]Transition{
				StateInitialize: {Next: StateDone, OnFailure: StateCleanup},
			},
		},
		{
			name: "success cycle",
			transitions: map[State]Transition{
				StateInitialize: {Next: StateLaunchJob, OnFailure: StateFailed},
				StateLaunchJob:  {Next: StateInitialize, OnFailure: StateFailed},
			},
		},
		{
			name: "failure edge cycle",
			transitions: map[State]Transition{
				StateInitialize: {Next: StateLaunchJob, OnFailure: StateFailed},
				StateLaunchJob:  {Next: StateDone, OnFailure: StateInitialize},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.transitions)
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestNewTable_TeardownIgnoresFailureEdge(t *testing.T) {
	// A teardown state's zero OnFailure would point back at INITIALIZE.
	table, err := NewTable(map[State]Transition{
		StateInitialize:           {Next: StateStopHeartbeatService, OnFailure: StateFailed},
		StateStopHeartbeatService: {Next: StateDone, Teardown: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestTable_EveryStateReachesTerminal(t *testing.T) {
	table := testTable(t, nil)
	for _, s := range table.States() {
		path := table.Path(s)
		require.NotEmpty(t, path)
		assert.True(t, path[len(path)-1].IsTerminal(), "path from %s ends in %s", s, path[len(path)-1])
		assert.LessOrEqual(t, len(path), table.Len()+1)
	}
}

func TestTable_StatesSorted(t *testing.T) {
	table := testTable(t, nil)
	states := table.States()
	assert.Equal(t, StateInitialize, states[0])
	assert.Equal(t, StateStopHeartbeatService, states[len(states)-1])
	assert.NotContains(t, states, StateDone)
}

func TestParseState(t *testing.T) {
	for s := StateInitialize; s <= StateFailed; s++ {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseState("RUNNING")
	assert.Error(t, err)
	assert.Equal(t, "State(42)", State(42).String())
}

func TestState_TextRoundTrip(t *testing.T) {
	text, err := StateMonitorJob.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "MONITOR_JOB", string(text))

	var s State
	require.NoError(t, s.UnmarshalText(text))
	assert.Equal(t, StateMonitorJob, s)
}

func TestReason_ExitCode(t *testing.T) {
	assert.Equal(t, 0, ReasonSuccess.ExitCode())
	assert.Equal(t, 1, ReasonJobFailure.ExitCode())
	assert.Equal(t, 2, ReasonInternalFailure.ExitCode())
	assert.Equal(t, 3, ReasonCancelled.ExitCode())
	assert.Equal(t, 2, Reason(99).ExitCode())
}

func TestFromError(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, FromError(nil).Kind)
	assert.Equal(t, OutcomeRetryable, FromError(Transient(assert.AnError)).Kind)
	assert.Equal(t, OutcomeFatal, FromError(assert.AnError).Kind)
	assert.Nil(t, Transient(nil))
	assert.True(t, IsTransient(&StageError{Err: Transient(assert.AnError)}))
}

func TestBackoff_Bounds(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 400*time.Millisecond)
	want := []time.Duration{100, 200, 400, 400}
	for i, base := range want {
		base *= time.Millisecond
		d := b.Next()
		assert.GreaterOrEqual(t, d, base*8/10, "attempt %d", i)
		assert.LessOrEqual(t, d, base*12/10, "attempt %d", i)
	}

	assert.Zero(t, newBackoff(0, time.Second).Next())
}

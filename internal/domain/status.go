package domain

import "time"

// JobStatus is the persisted view of an execution. It is rewritten on every
// state transition and once more with the final outcome.
type JobStatus struct {
	JobID string    `json:"jobId"`
	Agent AgentInfo `json:"agent"`

	// State is the current, or final, state name.
	State string `json:"state"`

	// Terminal is set once State is DONE or FAILED.
	Terminal bool `json:"terminal"`

	Reason         string   `json:"reason,omitempty"`
	ExitCode       int      `json:"exitCode"`
	FailedState    string   `json:"failedState,omitempty"`
	Error          string   `json:"error,omitempty"`
	Degraded       bool     `json:"degraded,omitempty"`
	TeardownErrors []string `json:"teardownErrors,omitempty"`
	Path           []string `json:"path,omitempty"`

	// JobExitCode is the exit code of the user's process, if it ran.
	JobExitCode *int `json:"jobExitCode,omitempty"`

	Archive *Archive `json:"archive,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// FinishedAt is nil until the execution reaches a terminal state.
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

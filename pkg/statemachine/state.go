package statemachine

import "fmt"

// State identifies one phase of a job execution.
type State int

const (
	StateInitialize State = iota
	StateStartHeartbeatService
	StateResolveSpecification
	StateCreateJobDirectory
	StateStartFilesService
	StateLaunchJob
	StateMonitorJob
	StateCollectArchive
	StateStopFilesService
	StateCleanup
	StateStopHeartbeatService
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInitialize:            "INITIALIZE",
	StateStartHeartbeatService: "START_HEARTBEAT_SERVICE",
	StateResolveSpecification:  "RESOLVE_SPECIFICATION",
	StateCreateJobDirectory:    "CREATE_JOB_DIRECTORY",
	StateStartFilesService:     "START_FILES_SERVICE",
	StateLaunchJob:             "LAUNCH_JOB",
	StateMonitorJob:            "MONITOR_JOB",
	StateCollectArchive:        "COLLECT_ARCHIVE",
	StateStopFilesService:      "STOP_FILES_SERVICE",
	StateCleanup:               "CLEANUP",
	StateStopHeartbeatService:  "STOP_HEARTBEAT_SERVICE",
	StateDone:                  "DONE",
	StateFailed:                "FAILED",
}

// String returns the canonical upper-case name of the state.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether s ends an execution.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState returns the state with the given canonical name.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}

package ports

import (
	"context"
)

// LaunchSpec describes the process to start.
type LaunchSpec struct {
	Command []string
	Env     []string
	Dir     string
	Stdout  string
	Stderr  string
}

// Launcher starts job processes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// Process is a started job process.
type Process interface {
	// PID returns the operating system process id.
	PID() int

	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}

	// ExitCode returns the exit code once Done is closed. A process
	// terminated by a signal reports 128 plus the signal number.
	ExitCode() int

	// Err returns the wait error, if any, once Done is closed.
	Err() error

	// Kill terminates the process and everything it started.
	Kill() error
}

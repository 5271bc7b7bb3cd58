// Package process launches job processes in their own process group.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
)

// Launcher implements ports.Launcher with os/exec.
type Launcher struct {
	logger log.Logger
}

// NewLauncher creates a new Launcher.
func NewLauncher(logger log.Logger) *Launcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Launcher{logger: logger}
}

// Launch starts the process described by spec. The process outlives ctx;
// callers stop it with Kill. Output is appended to the spec's stdout and
// stderr files.
func (l *Launcher) Launch(ctx context.Context, spec ports.LaunchSpec) (ports.Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("launch: empty command")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	setProcessGroup(cmd)

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	if spec.Stdout != "" {
		f, err := openLog(spec.Stdout)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		cmd.Stdout = f
	}
	if spec.Stderr != "" {
		f, err := openLog(spec.Stderr)
		if err != nil {
			closeAll()
			return nil, err
		}
		files = append(files, f)
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("start %s: %w", spec.Command[0], err)
	}

	p := &process{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go p.wait(closeAll)

	l.logger.Info("job process started",
		log.Int("pid", cmd.Process.Pid),
		log.String("command", spec.Command[0]),
	)
	return p, nil
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// process implements ports.Process.
type process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	exitCode int
	err      error
}

func (p *process) wait(closeFiles func()) {
	err := p.cmd.Wait()
	closeFiles()

	p.mu.Lock()
	p.exitCode = exitCode(p.cmd.ProcessState, err)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.err = err
	}
	p.mu.Unlock()
	close(p.done)
}

func (p *process) PID() int { return p.cmd.Process.Pid }

func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Kill terminates the whole process group. Killing an exited process is
// not an error.
func (p *process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func exitCode(state *os.ProcessState, err error) int {
	if state == nil {
		if err != nil {
			return 1
		}
		return 0
	}
	if code, ok := signalExitCode(state); ok {
		return code
	}
	return state.ExitCode()
}

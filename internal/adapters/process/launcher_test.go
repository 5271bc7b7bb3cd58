//go:build unix

package process

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/jobagent/internal/ports"
)

func waitDone(t *testing.T, p ports.Process) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(10 * time.Second):
		require.FailNow(t, "process did not exit")
	}
}

func TestLauncher_ExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   int
	}{
		{"success", "exit 0", 0},
		{"failure", "exit 7", 7},
		{"signal", "kill -TERM $$", 128 + 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLauncher(nil).Launch(context.Background(), ports.LaunchSpec{
				Command: []string{"/bin/sh", "-c", tt.script},
			})
			require.NoError(t, err)
			waitDone(t, p)
			assert.Equal(t, tt.want, p.ExitCode())
			assert.NoError(t, p.Err())
		})
	}
}

func TestLauncher_CapturesOutput(t *testing.T) {
	dir := t.TempDir()
	stdout := filepath.Join(dir, "stdout.log")
	stderr := filepath.Join(dir, "stderr.log")

	p, err := NewLauncher(nil).Launch(context.Background(), ports.LaunchSpec{
		Command: []string{"/bin/sh", "-c", `echo "out $GREETING"; echo err >&2; pwd`},
		Env:     []string{"GREETING=hi"},
		Dir:     dir,
		Stdout:  stdout,
		Stderr:  stderr,
	})
	require.NoError(t, err)
	waitDone(t, p)

	out, err := os.ReadFile(stdout)
	require.NoError(t, err)
	assert.Regexp(t, `^out hi\n`, string(out))
	errOut, err := os.ReadFile(stderr)
	require.NoError(t, err)
	assert.Equal(t, "err\n", string(errOut))
}

func TestLauncher_KillGroup(t *testing.T) {
	p, err := NewLauncher(nil).Launch(context.Background(), ports.LaunchSpec{
		Command: []string{"/bin/sh", "-c", "sleep 30 & wait"},
	})
	require.NoError(t, err)
	require.Positive(t, p.PID())

	require.NoError(t, p.Kill())
	waitDone(t, p)
	assert.Equal(t, 128+9, p.ExitCode())
	assert.NoError(t, p.Kill(), "second Kill()")
}

func TestLauncher_StartFailure(t *testing.T) {
	_, err := NewLauncher(nil).Launch(context.Background(), ports.LaunchSpec{
		Command: []string{filepath.Join(t.TempDir(), "missing")},
	})
	require.Error(t, err)

	_, err = NewLauncher(nil).Launch(context.Background(), ports.LaunchSpec{})
	require.Error(t, err, "empty command")
}

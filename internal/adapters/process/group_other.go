//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func killGroup(proc *os.Process) error { return proc.Kill() }

func signalExitCode(*os.ProcessState) (int, bool) { return 0, false }

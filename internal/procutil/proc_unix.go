//go:build !windows

package procutil

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Isolate puts the command in its own process group so terminal signals reach
// only the runner, which decides how to stop its children.
func Isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Interrupt sends SIGINT to the process group led by p.
func Interrupt(p *os.Process) error {
	return signalGroup(p, syscall.SIGINT)
}

// Kill sends SIGKILL to the process group led by p.
func Kill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return nil
	}
	if err := syscall.Kill(-p.Pid, sig); err != nil {
		// ESRCH means the group is already gone
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		// Not a group leader: fall back to the single process.
		if err := p.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("signal %d to pid %d: %w", sig, p.Pid, err)
		}
	}
	return nil
}

// ExitCode returns the exit status of a finished process. A process killed
// by a signal reports 128 plus the signal number.
func ExitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

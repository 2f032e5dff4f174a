//go:build windows

package procutil

import (
	"errors"
	"os"
	"os/exec"
)

// Isolate is a no-op on Windows (Setpgid not supported).
func Isolate(_ *exec.Cmd) {}

// Interrupt is not supported on Windows; callers escalate to Kill.
func Interrupt(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Signal(os.Interrupt)
}

// Kill terminates the process.
func Kill(p *os.Process) error {
	if p == nil {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// ExitCode returns the exit status of a finished process.
func ExitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}

// Package tracer attaches an external syscall tracer to a running child and
// collects its output once the child is gone.
package tracer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/logging"
	"github.com/RoyMattar/runner/internal/procutil"
)

// Default settings.
const (
	DefaultPath        = "strace"
	DefaultStopTimeout = 2 * time.Second
)

// Tracer launches `<path> -f -p <pid>` processes.
type Tracer struct {
	path        string
	stopTimeout time.Duration
	logger      *logging.Logger
}

// New creates a tracer launcher.
func New(path string, stopTimeout time.Duration, logger *logging.Logger) *Tracer {
	if path == "" {
		path = DefaultPath
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracer{path: path, stopTimeout: stopTimeout, logger: logger}
}

// Path returns the tracer executable.
func (t *Tracer) Path() string {
	return t.path
}

// Attach starts the tracer against pid. The returned Trace must be stopped
// with Stop or Kill.
func (t *Tracer) Attach(ctx context.Context, attempt core.Attempt, pid int) (*Trace, error) {
	tr := &Trace{
		attempt:     attempt,
		stopTimeout: t.stopTimeout,
		logger:      t.logger,
		done:        make(chan struct{}),
	}

	// The tracer writes events to stderr; both streams land in one buffer.
	cmd := exec.CommandContext(ctx, t.path, "-f", "-p", strconv.Itoa(pid))
	cmd.Stdout = &tr.out
	cmd.Stderr = &tr.out
	procutil.Isolate(cmd)
	// Killing on ctx cancel must take the whole group.
	cmd.Cancel = func() error { return procutil.Kill(cmd.Process) }

	if err := cmd.Start(); err != nil {
		return nil, core.ErrSpawn(core.CodeTracerSpawnFailed, fmt.Sprintf("starting %s", t.path)).
			WithCause(err).
			WithDetail("pid", pid)
	}
	tr.cmd = cmd

	go func() {
		tr.waitErr = cmd.Wait()
		close(tr.done)
	}()

	t.logger.Debug("tracer attached", "tracer", t.path, "pid", pid, "tracer_pid", cmd.Process.Pid)
	return tr, nil
}

// Trace is one running tracer process and the output it produced.
type Trace struct {
	attempt     core.Attempt
	cmd         *exec.Cmd
	stopTimeout time.Duration
	logger      *logging.Logger

	out     bytes.Buffer
	done    chan struct{}
	waitErr error

	stopOnce sync.Once
}

// Stop interrupts the tracer so it flushes buffered events, and waits for it
// to exit. A tracer still alive after the stop timeout is killed.
func (tr *Trace) Stop() {
	tr.stopOnce.Do(func() {
		if err := procutil.Interrupt(tr.cmd.Process); err != nil {
			tr.logger.Debug("tracer interrupt failed, killing", "error", err)
			_ = procutil.Kill(tr.cmd.Process)
		}

		timer := time.NewTimer(tr.stopTimeout)
		defer timer.Stop()
		select {
		case <-tr.done:
		case <-timer.C:
			tr.logger.Warn("tracer ignored interrupt, killing", "timeout", tr.stopTimeout)
			_ = procutil.Kill(tr.cmd.Process)
			<-tr.done
		}
	})
}

// Kill terminates the tracer immediately.
func (tr *Trace) Kill() {
	tr.stopOnce.Do(func() {
		_ = procutil.Kill(tr.cmd.Process)
		<-tr.done
	})
}

// Done is closed once the tracer process has been reaped.
func (tr *Trace) Done() <-chan struct{} {
	return tr.done
}

// Output returns what the tracer printed. It is only stable after Stop.
func (tr *Trace) Output() []byte {
	select {
	case <-tr.done:
		return tr.out.Bytes()
	default:
		return nil
	}
}

// Err returns the tracer's wait error once it has exited. Tracers commonly
// exit non-zero after an interrupt, so this is informational.
func (tr *Trace) Err() error {
	select {
	case <-tr.done:
		return tr.waitErr
	default:
		return nil
	}
}

// Stream returns the collected trace tagged for persistence.
func (tr *Trace) Stream() *core.Stream {
	return core.NewStream(tr.attempt, core.SubjectSyscalls, tr.Output())
}

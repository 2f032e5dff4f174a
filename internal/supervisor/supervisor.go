// Package supervisor runs one attempt of the command end to end: spawn the
// child, optionally attach the syscall tracer, sample its resources
// concurrently for its whole lifetime, and capture diagnostics when it fails.
package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RoyMattar/runner/internal/config"
	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/diagnostics"
	"github.com/RoyMattar/runner/internal/logging"
	"github.com/RoyMattar/runner/internal/procutil"
	"github.com/RoyMattar/runner/internal/sampler"
	"github.com/RoyMattar/runner/internal/tracer"
)

// Options configures a Supervisor.
type Options struct {
	Trace          config.TraceConfig
	SampleInterval time.Duration

	// Tracer is required when Trace.Call is set.
	Tracer *tracer.Tracer
	// Writer persists diagnostics of failed attempts.
	Writer *diagnostics.Writer
	// Executor admits each attempt. Nil disables preflight checks.
	Executor *diagnostics.SafeExecutor

	// Stdout and Stderr receive the child's captured output after every
	// attempt. They default to the runner's own streams.
	Stdout io.Writer
	Stderr io.Writer

	Logger      *logging.Logger
	NetCounters sampler.NetCounters
}

// Supervisor runs attempts of a single command, one at a time.
type Supervisor struct {
	command string
	opts    Options
	logger  *logging.Logger

	mu      sync.Mutex
	child   *os.Process
	trace   *tracer.Trace
	aborted bool
}

// New creates a supervisor for command.
func New(command string, opts Options) *Supervisor {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Executor == nil {
		opts.Executor = diagnostics.NewSafeExecutor(nil, nil, opts.Logger, false, 0)
	}
	if opts.Trace.Call && opts.Tracer == nil {
		opts.Tracer = tracer.New("", 0, opts.Logger)
	}
	if opts.Trace.Net {
		opts.Logger.Warn("network capture is not supported, net trace ignored")
	}
	return &Supervisor{
		command: command,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Command returns the supervised command line.
func (s *Supervisor) Command() string {
	return s.command
}

// RunAttempt runs the command once and returns its exit code.
//
// A child that cannot be started is returned as a spawn error and no exit
// code is produced. Tracer and diagnostic failures are logged and never
// change the outcome.
func (s *Supervisor) RunAttempt(ctx context.Context, iteration int) (int, error) {
	attempt := core.Attempt{Command: s.command, Iteration: iteration}
	argv := attempt.Argv()
	if len(argv) == 0 {
		return core.ExitFallback, core.ErrValidation(core.CodeEmptyCommand, "command is empty")
	}
	logger := s.logger.WithAttempt(s.command, iteration)

	release, err := s.opts.Executor.Admit(ctx, attempt)
	if err != nil {
		return core.ExitFallback, err
	}
	defer release()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- running the operator's command is the point
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()
	procutil.Isolate(cmd)
	cmd.Cancel = func() error { return procutil.Kill(cmd.Process) }

	if err := s.start(cmd); err != nil {
		return core.ExitFallback, core.ErrSpawn(core.CodeChildSpawnFailed, fmt.Sprintf("starting %s", argv[0])).
			WithCause(err).
			WithDetail("iteration", iteration)
	}
	defer s.clearActive()
	pid := cmd.Process.Pid
	logger.Debug("child started", "pid", pid)

	var trace *tracer.Trace
	if s.opts.Trace.Call {
		trace, err = s.opts.Tracer.Attach(ctx, attempt, pid)
		if err != nil {
			logger.Warn("syscall trace unavailable for this attempt", "error", err)
		} else {
			s.setTrace(trace)
		}
	}

	sampleCtx, stopSampling := context.WithCancel(ctx)
	defer stopSampling()
	var samplers []sampler.Sampler
	var g errgroup.Group
	if s.opts.Trace.Sys {
		samplers = s.startSamplers(sampleCtx, &g, attempt, pid, logger)
	}

	waitErr := cmd.Wait()
	code, err := exitCode(cmd, waitErr)
	if err != nil {
		stopSampling()
		_ = g.Wait()
		if trace != nil {
			trace.Kill()
		}
		return core.ExitFallback, fmt.Errorf("waiting for child: %w", err)
	}
	logger.Debug("child exited", "pid", pid, "exit_code", code)

	// The child is reaped; anything still polling is reading a dead pid.
	stopSampling()
	_ = g.Wait()

	if trace != nil {
		trace.Stop()
		if err := trace.Err(); err != nil {
			logger.Debug("tracer exited", "error", err)
		}
	}

	s.echo(logger, "stdout", s.opts.Stdout, stdout.Bytes())
	s.echo(logger, "stderr", s.opts.Stderr, stderr.Bytes())

	if code != core.ExitSuccess {
		s.capture(logger, attempt, samplers, trace, stdout.Bytes(), stderr.Bytes())
	}
	return code, nil
}

// Abort kills the running child and tracer, if any, and refuses further
// attempts. It is safe to call from any goroutine.
func (s *Supervisor) Abort() {
	s.mu.Lock()
	s.aborted = true
	child, trace := s.child, s.trace
	s.mu.Unlock()

	if child != nil {
		s.logger.Debug("killing child", "pid", child.Pid)
		_ = procutil.Kill(child)
	}
	if trace != nil {
		trace.Kill()
	}
}

func (s *Supervisor) start(cmd *exec.Cmd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return errors.New("supervisor aborted")
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.child = cmd.Process
	return nil
}

func (s *Supervisor) setTrace(tr *tracer.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = tr
}

func (s *Supervisor) clearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.child = nil
	s.trace = nil
}

func (s *Supervisor) startSamplers(ctx context.Context, g *errgroup.Group, attempt core.Attempt, pid int, logger *logging.Logger) []sampler.Sampler {
	proc, err := sampler.Open(ctx, pid)
	if err != nil {
		logger.Debug("child gone before sampling", "error", err)
		return nil
	}
	samplers := sampler.All(attempt, proc, sampler.Options{
		Interval:    s.opts.SampleInterval,
		Logger:      logger,
		NetCounters: s.opts.NetCounters,
	})
	sampleAll(ctx, g, samplers, logger)
	logger.Debug("samplers started", "count", len(samplers))
	return samplers
}

// sampleAll starts every sampler on g. Errors are logged per sampler since
// Wait only returns the first one.
func sampleAll(ctx context.Context, g *errgroup.Group, samplers []sampler.Sampler, logger *logging.Logger) {
	for _, smp := range samplers {
		g.Go(func() error {
			err := smp.Sample(ctx)
			if err != nil {
				logger.Warn("sampler ended early", "sampler", smp.Subject(), "error", err)
			}
			return err
		})
	}
}

func (s *Supervisor) echo(logger *logging.Logger, stream string, w io.Writer, data []byte) {
	if len(data) == 0 {
		return
	}
	if !isASCII(data) {
		logger.Warn("child output is not ASCII", "stream", stream)
	}
	if _, err := w.Write(data); err != nil {
		logger.Debug("echo failed", "stream", stream, "error", err)
	}
}

func (s *Supervisor) capture(
	logger *logging.Logger,
	attempt core.Attempt,
	samplers []sampler.Sampler,
	trace *tracer.Trace,
	stdout, stderr []byte,
) {
	if s.opts.Writer == nil {
		return
	}

	var items []core.Persistable
	if s.opts.Trace.Sys {
		for _, smp := range samplers {
			items = append(items, smp)
		}
	}
	if s.opts.Trace.Call && trace != nil {
		items = append(items, trace.Stream())
	}
	if s.opts.Trace.Log {
		items = append(items,
			core.NewStream(attempt, core.SubjectStdout, stdout),
			core.NewStream(attempt, core.SubjectStderr, stderr),
		)
	}
	if len(items) == 0 {
		return
	}

	n := s.opts.Writer.PersistAll(items...)
	logger.Info("diagnostics captured", "files", n, "dir", s.opts.Writer.SessionDir())
}

// exitCode reads the status of a reaped child. A wait error that left no
// process state means no exit code exists.
func exitCode(cmd *exec.Cmd, waitErr error) (int, error) {
	if cmd.ProcessState == nil {
		if waitErr == nil {
			waitErr = errors.New("no process state")
		}
		return core.ExitFallback, waitErr
	}
	return procutil.ExitCode(cmd.ProcessState), nil
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7f {
			return false
		}
	}
	return true
}

package session

import (
	"io"
	"os"
	"sync/atomic"
	"syscall"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/logging"
)

const (
	stateRunning int32 = iota
	stateFinalizing
)

// TerminatorOptions configures a Terminator.
type TerminatorOptions struct {
	// Abort stops whatever attempt is in flight. It may be nil.
	Abort func()
	// BeforeExit runs after the report is printed, e.g. to flush metrics.
	BeforeExit func()
	// Out receives the summary. Defaults to os.Stdout.
	Out io.Writer
	// Exit ends the process. Defaults to os.Exit.
	Exit   func(int)
	Logger *logging.Logger
}

// Terminator owns the single finalize-and-exit path of a session. It runs
// at most once, whether triggered by normal completion or by a signal.
type Terminator struct {
	agg   *Aggregator
	opts  TerminatorOptions
	state atomic.Int32
	done  chan struct{}
}

// NewTerminator creates a terminator for agg.
func NewTerminator(agg *Aggregator, opts TerminatorOptions) *Terminator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Terminator{agg: agg, opts: opts, done: make(chan struct{})}
}

// Finalize seals the aggregator, aborts the attempt in flight, prints the
// summary and exits with the most frequent code. Only the first call has
// any effect; it reports whether this call did the work.
func (t *Terminator) Finalize(reason string) bool {
	if !t.state.CompareAndSwap(stateRunning, stateFinalizing) {
		return false
	}
	defer close(t.done)

	t.opts.Logger.Debug("finalizing session", "reason", reason)
	t.agg.Seal()
	if t.opts.Abort != nil {
		t.opts.Abort()
	}
	t.agg.FinalizeAndTerminate(t.opts.Out, func(code int) {
		if t.opts.BeforeExit != nil {
			t.opts.BeforeExit()
		}
		t.opts.Exit(code)
	})
	return true
}

// HandleSignal finalizes on the first signal. A signal arriving while
// finalizing exits immediately with 128+signo.
func (t *Terminator) HandleSignal(sig os.Signal) {
	if t.state.Load() == stateRunning {
		t.opts.Logger.Info("interrupted, finalizing", "signal", sig.String())
		if t.Finalize(sig.String()) {
			return
		}
	}
	t.opts.Logger.Warn("second interrupt, exiting immediately", "signal", sig.String())
	t.opts.Exit(signalExitCode(sig))
}

// Watch handles signals from sigs until the channel is closed.
func (t *Terminator) Watch(sigs <-chan os.Signal) {
	for sig := range sigs {
		go t.HandleSignal(sig)
	}
}

// Finalizing reports whether the finalize path has started.
func (t *Terminator) Finalizing() bool {
	return t.state.Load() != stateRunning
}

// Done is closed once Finalize has returned.
func (t *Terminator) Done() <-chan struct{} {
	return t.done
}

func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return core.ExitSignalBase + int(s)
	}
	return core.ExitFallback
}

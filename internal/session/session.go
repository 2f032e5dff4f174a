// Package session drives the repeat loop of one runner invocation and owns
// its outcome: the exit-code histogram, the interrupt path and the session
// metrics.
package session

import (
	"context"
	"time"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/diagnostics"
	"github.com/RoyMattar/runner/internal/logging"
)

// AttemptRunner runs one attempt and returns its exit code.
type AttemptRunner interface {
	RunAttempt(ctx context.Context, iteration int) (int, error)
}

// Options configures a Session. Every field is optional.
type Options struct {
	Executor *diagnostics.SafeExecutor
	Metrics  *Metrics
	Logger   *logging.Logger
}

// Session runs attempts strictly one after another.
type Session struct {
	runner AttemptRunner
	agg    *Aggregator
	opts   Options
}

// New creates a session recording into agg.
func New(runner AttemptRunner, agg *Aggregator, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Executor == nil {
		opts.Executor = diagnostics.NewSafeExecutor(nil, nil, opts.Logger, false, 0)
	}
	return &Session{runner: runner, agg: agg, opts: opts}
}

// Aggregator returns the session histogram.
func (s *Session) Aggregator() *Aggregator {
	return s.agg
}

// Run executes up to total attempts. When allowedFailures is positive the
// session stops as soon as that many attempts have failed; zero means no
// budget. It returns the most frequent exit code so far.
//
// An attempt error, such as a child that cannot be spawned, ends the
// session and is returned along with the outcome of the attempts that did
// run.
func (s *Session) Run(ctx context.Context, total, allowedFailures int) (int, error) {
	if total <= 0 {
		return core.ExitFallback, core.ErrValidation(core.CodeInvalidCount, "count must be a positive integer").
			WithDetail("count", total)
	}
	if allowedFailures < 0 {
		return core.ExitFallback, core.ErrValidation(core.CodeInvalidFailedCount, "failed count must be a positive integer").
			WithDetail("failed_count", allowedFailures)
	}

	logger := s.opts.Logger
	failures := 0
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			logger.Info("session cancelled", "completed", i)
			break
		}

		start := time.Now()
		var code int
		err := s.opts.Executor.WrapExecution(func() error {
			var runErr error
			code, runErr = s.runner.RunAttempt(ctx, i)
			return runErr
		})
		if err != nil {
			logger.Error("attempt failed to run", "iteration", i, "error", err)
			return s.agg.MostFrequent(), err
		}

		if !s.agg.AddExitCode(i, code) {
			logger.Debug("session sealed, dropping exit code", "iteration", i, "exit_code", code)
			break
		}
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveAttempt(code, time.Since(start))
		}
		if m := s.opts.Executor.Monitor(); m != nil {
			m.Record(ctx)
		}
		logger.Debug("attempt finished", "iteration", i, "exit_code", code, "duration", time.Since(start))

		if code != core.ExitSuccess {
			failures++
			if allowedFailures > 0 && failures >= allowedFailures {
				logger.Info("failure budget reached", "failures", failures, "attempts", i+1)
				break
			}
		}
	}

	return s.agg.MostFrequent(), nil
}

// Package sampler polls a running child process for resource readings.
//
// Every sampler of an attempt runs on its own goroutine for the whole life of
// the child and shares the same read-only Process handle. Readings accumulate
// in memory and are rendered only when the attempt failed.
package sampler

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/logging"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = 20 * time.Millisecond

// Sampler produces one series for one resource dimension of a child process.
type Sampler interface {
	core.Persistable
	// Sample blocks, polling until the child exits or ctx is done. A non-nil
	// error only reports why the series ended early; the readings taken so
	// far remain valid.
	Sample(ctx context.Context) error
}

// Options configures the samplers of one attempt.
type Options struct {
	Interval    time.Duration
	Logger      *logging.Logger
	NetCounters NetCounters
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	if o.NetCounters == nil {
		o.NetCounters = SystemNetCounters
	}
	return o
}

// All returns one sampler per resource dimension, in a fixed order.
func All(attempt core.Attempt, proc Process, opts Options) []Sampler {
	return []Sampler{
		NewDiskIO(attempt, proc, opts),
		NewMemory(attempt, proc, opts),
		NewProcCPU(attempt, proc, opts),
		NewNetwork(attempt, proc, opts),
	}
}

type base struct {
	attempt core.Attempt
	subject string
	proc    Process
	opts    Options
}

func newBase(attempt core.Attempt, subject string, proc Process, opts Options) base {
	return base{
		attempt: attempt,
		subject: subject,
		proc:    proc,
		opts:    opts.withDefaults(),
	}
}

func (b *base) Attempt() core.Attempt { return b.attempt }
func (b *base) Subject() string { return b.subject }
func (b *base) Extension() string { return core.ExtensionLog }

// poll calls read once per interval while the child is alive.
//
// The series ends without error when the child exits (including between the
// liveness check and the read) or turns into a zombie. A permission error
// ends the series with an ErrPermission. Other read errors skip the tick.
func (b *base) poll(ctx context.Context, read func(context.Context) error) error {
	logger := b.opts.Logger.WithSubject(b.subject)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if !b.alive(ctx) {
			return nil
		}

		if err := read(ctx); err != nil {
			switch {
			case ctx.Err() != nil, isGone(err):
				return nil
			case errors.Is(err, os.ErrPermission):
				return core.ErrPermission(b.subject).WithCause(err)
			case !b.alive(ctx):
				return nil
			default:
				logger.Debug("sample skipped", "error", err)
			}
		}

		if b.zombie(ctx) {
			return nil
		}
		timer.Reset(b.opts.Interval)
	}
}

func (b *base) alive(ctx context.Context) bool {
	running, err := b.proc.IsRunningWithContext(ctx)
	return err == nil && running
}

func (b *base) zombie(ctx context.Context) bool {
	status, err := b.proc.StatusWithContext(ctx)
	if err != nil {
		return false
	}
	for _, s := range status {
		if s == process.Zombie {
			return true
		}
	}
	return false
}

func isGone(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ESRCH)
}

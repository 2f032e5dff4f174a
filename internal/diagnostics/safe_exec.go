package diagnostics

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/logging"
)

// PreflightResult contains the result of pre-spawn checks.
type PreflightResult struct {
	OK       bool
	Warnings []string
	Errors   []string
	Snapshot ResourceSnapshot
}

// SafeExecutor guards each attempt with resource checks and crash recovery.
type SafeExecutor struct {
	monitor          *ResourceMonitor
	dumpWriter       *CrashDumpWriter
	logger           *logging.Logger
	preflightEnabled bool
	minFreeFDPercent int
}

// NewSafeExecutor creates a safe executor. monitor and dumpWriter may be nil.
func NewSafeExecutor(
	monitor *ResourceMonitor,
	dumpWriter *CrashDumpWriter,
	logger *logging.Logger,
	preflightEnabled bool,
	minFreeFDPercent int,
) *SafeExecutor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SafeExecutor{
		monitor:          monitor,
		dumpWriter:       dumpWriter,
		logger:           logger,
		preflightEnabled: preflightEnabled,
		minFreeFDPercent: minFreeFDPercent,
	}
}

// Monitor returns the resource monitor, which may be nil.
func (e *SafeExecutor) Monitor() *ResourceMonitor {
	return e.monitor
}

// RunPreflight performs pre-spawn health checks.
func (e *SafeExecutor) RunPreflight(ctx context.Context) PreflightResult {
	result := PreflightResult{OK: true}

	if !e.preflightEnabled || e.monitor == nil {
		return result
	}

	result.Snapshot = e.monitor.TakeSnapshot(ctx)

	// Skip the FD check where the platform reports no limit
	if result.Snapshot.MaxFDs > 0 && e.minFreeFDPercent > 0 {
		freeFDPercent := 100.0 - result.Snapshot.FDUsagePercent
		if freeFDPercent < float64(e.minFreeFDPercent) {
			result.OK = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("insufficient free FDs: %.1f%% free (minimum: %d%%)",
					freeFDPercent, e.minFreeFDPercent))
		} else if freeFDPercent < float64(e.minFreeFDPercent)*1.5 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("FD usage approaching limit: %.1f%% free", freeFDPercent))
		}
	}

	if trend := e.monitor.GetTrend(); !trend.IsHealthy {
		result.Warnings = append(result.Warnings, trend.Warnings...)
	}

	return result
}

// Admit runs the preflight checks for attempt and, when they pass, marks the
// attempt active. release must be called once the child has been reaped.
func (e *SafeExecutor) Admit(ctx context.Context, attempt core.Attempt) (release func(), err error) {
	result := e.RunPreflight(ctx)
	for _, w := range result.Warnings {
		e.logger.Warn("preflight warning", "message", w)
	}
	if !result.OK {
		return nil, core.ErrSpawn(core.CodePreflightFailed, strings.Join(result.Errors, "; ")).
			WithDetail("iteration", attempt.Iteration)
	}

	if e.monitor != nil {
		e.monitor.AttemptStarted()
	}
	if e.dumpWriter != nil {
		e.dumpWriter.SetAttempt(attempt)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if e.monitor != nil {
			e.monitor.AttemptFinished()
		}
		if e.dumpWriter != nil {
			e.dumpWriter.ClearAttempt()
		}
	}, nil
}

// WrapExecution runs fn, converting a panic into a crash dump and an error.
//
// Usage:
//
//	err := executor.WrapExecution(func() error {
//	    code, err = supervisor.RunAttempt(ctx, i)
//	    return err
//	})
func (e *SafeExecutor) WrapExecution(fn func() error) (err error) {
	if e.dumpWriter != nil {
		defer e.dumpWriter.RecoverAndReturn(&err)
	}
	return fn()
}

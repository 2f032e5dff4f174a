// Package diagnostics persists per-attempt diagnostics and watches the
// runner's own health across long repeat sessions.
//
// The package implements four components:
//
//   - Writer: renders a failed attempt's samples and captured streams into
//     <logs>/<session>/<command>_<iteration>_<subject>.<ext>, atomically.
//     Write failures are logged and counted, never propagated as fatal.
//
//   - ResourceMonitor: snapshots file descriptors, goroutines and heap after
//     every attempt into a bounded history and detects leak trends.
//
//   - SafeExecutor: refuses to spawn an attempt when the runner is short on
//     file descriptors, and turns a panic into a crash dump and an error.
//
//   - CrashDumpWriter: persists panic value, stack, resource history and the
//     attempt in progress as JSON for post-mortem debugging.
package diagnostics

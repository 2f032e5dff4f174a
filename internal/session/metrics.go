package session

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/RoyMattar/runner/internal/fsutil"
)

// Metrics tracks one session in its own registry.
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	failures        prometheus.Counter
	duration        prometheus.Histogram
	diagnostics     *prometheus.CounterVec
	diagnosticError *prometheus.CounterVec
}

// NewMetrics creates the session metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runner",
			Name:      "attempts_total",
			Help:      "Attempts run, by exit code",
		}, []string{"exit_code"}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "runner",
			Name:      "attempt_failures_total",
			Help:      "Attempts that exited non-zero",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "runner",
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of one attempt, spawn to diagnostics flushed",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runner",
			Name:      "diagnostic_files_total",
			Help:      "Diagnostic files written, by subject",
		}, []string{"subject"}),
		diagnosticError: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runner",
			Name:      "diagnostic_write_errors_total",
			Help:      "Diagnostic files that could not be written, by subject",
		}, []string{"subject"}),
	}
}

// Registry returns the session registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAttempt records a finished attempt.
func (m *Metrics) ObserveAttempt(code int, d time.Duration) {
	m.attempts.WithLabelValues(strconv.Itoa(code)).Inc()
	if code != 0 {
		m.failures.Inc()
	}
	m.duration.Observe(d.Seconds())
}

// ObserveDiagnostic records one persist. Its signature matches
// diagnostics.WriteObserver.
func (m *Metrics) ObserveDiagnostic(subject string, err error) {
	if err != nil {
		m.diagnosticError.WithLabelValues(subject).Inc()
		return
	}
	m.diagnostics.WithLabelValues(subject).Inc()
}

// WriteTextfile writes the registry in text exposition format, for the
// node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

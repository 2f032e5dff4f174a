package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session"`
	Trace       TraceConfig       `mapstructure:"trace" yaml:"trace"`
	Tracer      TracerConfig      `mapstructure:"tracer" yaml:"tracer"`
	Sampling    SamplingConfig    `mapstructure:"sampling" yaml:"sampling"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SessionConfig configures the repeat loop.
type SessionConfig struct {
	// Count is the number of attempts to run.
	Count int `mapstructure:"count" yaml:"count"`
	// FailedCount stops the session once this many attempts failed. Zero means unset.
	FailedCount int `mapstructure:"failed_count" yaml:"failed_count"`
	// LogsDir is the root under which one timestamped directory per session is created.
	LogsDir string `mapstructure:"logs_dir" yaml:"logs_dir"`
}

// TraceConfig selects which diagnostics are captured for failed attempts.
type TraceConfig struct {
	Sys  bool `mapstructure:"sys" yaml:"sys"`
	Call bool `mapstructure:"call" yaml:"call"`
	Log  bool `mapstructure:"log" yaml:"log"`
	Net  bool `mapstructure:"net" yaml:"net"`
}

// Any reports whether at least one diagnostic category is enabled.
func (t TraceConfig) Any() bool {
	return t.Sys || t.Call || t.Log || t.Net
}

// TracerConfig configures the external syscall tracer.
type TracerConfig struct {
	Path        string `mapstructure:"path" yaml:"path"`
	StopTimeout string `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// StopTimeoutDuration returns how long to wait for the tracer after the stop signal.
func (t TracerConfig) StopTimeoutDuration() time.Duration {
	return parseDurationOr(t.StopTimeout, 2*time.Second)
}

// SamplingConfig configures the resource samplers.
type SamplingConfig struct {
	Interval string `mapstructure:"interval" yaml:"interval"`
}

// IntervalDuration returns the poll interval.
func (s SamplingConfig) IntervalDuration() time.Duration {
	return parseDurationOr(s.Interval, 20*time.Millisecond)
}

// DiagnosticsConfig configures self-monitoring and crash dumps.
type DiagnosticsConfig struct {
	Preflight         bool   `mapstructure:"preflight" yaml:"preflight"`
	MinFreeFDPercent  int    `mapstructure:"min_free_fd_percent" yaml:"min_free_fd_percent"`
	HistorySize       int    `mapstructure:"history_size" yaml:"history_size"`
	CrashDumpDir      string `mapstructure:"crashdump_dir" yaml:"crashdump_dir"`
	CrashDumpMaxFiles int    `mapstructure:"crashdump_max_files" yaml:"crashdump_max_files"`
}

// MetricsConfig configures the session metrics export.
type MetricsConfig struct {
	// Textfile is a path written in prometheus text format when the session ends.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

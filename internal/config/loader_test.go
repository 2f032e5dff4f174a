package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}

	if cfg.Session.Count != 1 {
		t.Errorf("Session.Count = %d, want 1", cfg.Session.Count)
	}
	// failed_count is unset by default
	if cfg.Session.FailedCount != 0 {
		t.Errorf("Session.FailedCount = %d, want 0", cfg.Session.FailedCount)
	}
	if cfg.Session.LogsDir != "logs" {
		t.Errorf("Session.LogsDir = %q, want %q", cfg.Session.LogsDir, "logs")
	}

	if cfg.Trace.Any() {
		t.Errorf("Trace = %+v, want all categories disabled", cfg.Trace)
	}

	if cfg.Tracer.Path != "strace" {
		t.Errorf("Tracer.Path = %q, want %q", cfg.Tracer.Path, "strace")
	}
	if got := cfg.Tracer.StopTimeoutDuration(); got != 2*time.Second {
		t.Errorf("Tracer.StopTimeoutDuration() = %v, want 2s", got)
	}
	if got := cfg.Sampling.IntervalDuration(); got != 20*time.Millisecond {
		t.Errorf("Sampling.IntervalDuration() = %v, want 20ms", got)
	}

	if !cfg.Diagnostics.Preflight {
		t.Error("Diagnostics.Preflight = false, want true")
	}
	if cfg.Diagnostics.HistorySize != 120 {
		t.Errorf("Diagnostics.HistorySize = %d, want 120", cfg.Diagnostics.HistorySize)
	}
	if cfg.Metrics.Textfile != "" {
		t.Errorf("Metrics.Textfile = %q, want empty", cfg.Metrics.Textfile)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("RUNNER_LOG_LEVEL", "debug")
	t.Setenv("RUNNER_SESSION_COUNT", "7")
	t.Setenv("RUNNER_TRACE_CALL", "true")
	t.Setenv("RUNNER_SAMPLING_INTERVAL", "50ms")

	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Session.Count != 7 {
		t.Errorf("Session.Count = %d, want 7", cfg.Session.Count)
	}
	if !cfg.Trace.Call {
		t.Error("Trace.Call = false, want true")
	}
	if got := cfg.Sampling.IntervalDuration(); got != 50*time.Millisecond {
		t.Errorf("Sampling.IntervalDuration() = %v, want 50ms", got)
	}
}

func TestLoader_ConfigFileOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
log:
  level: warn
  format: json
session:
  count: 10
  failed_count: 3
  logs_dir: /tmp/runner-logs
trace:
  sys: true
  log: true
tracer:
  stop_timeout: 5s
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loader := NewLoader().WithConfigFile(configPath)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Session.Count != 10 || cfg.Session.FailedCount != 3 {
		t.Errorf("Session = %+v, want count=10 failed_count=3", cfg.Session)
	}
	if cfg.Session.LogsDir != "/tmp/runner-logs" {
		t.Errorf("Session.LogsDir = %q", cfg.Session.LogsDir)
	}
	if !cfg.Trace.Sys || !cfg.Trace.Log || cfg.Trace.Call || cfg.Trace.Net {
		t.Errorf("Trace = %+v, want sys and log only", cfg.Trace)
	}
	if got := cfg.Tracer.StopTimeoutDuration(); got != 5*time.Second {
		t.Errorf("Tracer.StopTimeoutDuration() = %v, want 5s", got)
	}
	// Unset keys keep their defaults
	if cfg.Tracer.Path != "strace" {
		t.Errorf("Tracer.Path = %q, want default", cfg.Tracer.Path)
	}
}

func TestLoader_Precedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("session:\n  count: 4\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	t.Setenv("RUNNER_SESSION_COUNT", "9")

	cfg, err := NewLoader().WithConfigFile(configPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.Count != 9 {
		t.Errorf("Session.Count = %d, want env value 9 over file value 4", cfg.Session.Count)
	}
}

func TestLoader_ViperOverride(t *testing.T) {
	v := viper.New()
	v.Set("session.failed_count", 2)

	cfg, err := NewLoaderWithViper(v).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.FailedCount != 2 {
		t.Errorf("Session.FailedCount = %d, want 2", cfg.Session.FailedCount)
	}
}

func TestLoader_InvalidConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(configPath, []byte("session: [count\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := NewLoader().WithConfigFile(configPath).Load()
	if err == nil {
		t.Error("Load() error = nil, want error for invalid YAML")
	}
}

func TestLoader_ConfigFileUsed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "used.yaml")
	if err := os.WriteFile(configPath, []byte("log:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loader := NewLoader().WithConfigFile(configPath)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loader.ConfigFile() != configPath {
		t.Errorf("ConfigFile() = %q, want %q", loader.ConfigFile(), configPath)
	}
}

func TestLoader_WithEnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "error")
	}
}

func TestDefaultConfigYAML_RoundTrip(t *testing.T) {
	data, err := DefaultConfigYAML()
	if err != nil {
		t.Fatalf("DefaultConfigYAML() error = %v", err)
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "default.yaml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write default config: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(configPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
	if *cfg != Defaults() {
		t.Errorf("loaded config = %+v, want %+v", *cfg, Defaults())
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Fields returns the names of the fields that failed validation.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateSession(&cfg.Session)
	v.validateTracer(&cfg.Tracer, cfg.Trace.Call)
	v.validateSampling(&cfg.Sampling)
	v.validateDiagnostics(&cfg.Diagnostics)
	v.validateMetrics(&cfg.Metrics)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateSession(cfg *SessionConfig) {
	if cfg.Count <= 0 {
		v.addError("session.count", cfg.Count, "must be positive")
	}
	if cfg.FailedCount < 0 {
		v.addError("session.failed_count", cfg.FailedCount, "must not be negative")
	}
	if cfg.LogsDir == "" {
		v.addError("session.logs_dir", cfg.LogsDir, "directory required")
	} else if !isValidPath(cfg.LogsDir) {
		v.addError("session.logs_dir", cfg.LogsDir, "invalid directory path")
	}
}

func (v *Validator) validateTracer(cfg *TracerConfig, enabled bool) {
	if enabled && cfg.Path == "" {
		v.addError("tracer.path", cfg.Path, "required when trace.call is enabled")
	}
	if d, err := time.ParseDuration(cfg.StopTimeout); err != nil {
		v.addError("tracer.stop_timeout", cfg.StopTimeout, "invalid duration format")
	} else if d <= 0 {
		v.addError("tracer.stop_timeout", cfg.StopTimeout, "must be positive")
	}
}

func (v *Validator) validateSampling(cfg *SamplingConfig) {
	if d, err := time.ParseDuration(cfg.Interval); err != nil {
		v.addError("sampling.interval", cfg.Interval, "invalid duration format")
	} else if d <= 0 {
		v.addError("sampling.interval", cfg.Interval, "must be positive")
	}
}

func (v *Validator) validateDiagnostics(cfg *DiagnosticsConfig) {
	if cfg.MinFreeFDPercent < 0 || cfg.MinFreeFDPercent > 100 {
		v.addError("diagnostics.min_free_fd_percent", cfg.MinFreeFDPercent, "must be between 0 and 100")
	}
	if cfg.HistorySize <= 0 {
		v.addError("diagnostics.history_size", cfg.HistorySize, "must be positive")
	}
	if cfg.CrashDumpMaxFiles < 0 {
		v.addError("diagnostics.crashdump_max_files", cfg.CrashDumpMaxFiles, "must not be negative")
	}
	if cfg.CrashDumpDir != "" && !isValidPath(cfg.CrashDumpDir) {
		v.addError("diagnostics.crashdump_dir", cfg.CrashDumpDir, "invalid directory path")
	}
}

func (v *Validator) validateMetrics(cfg *MetricsConfig) {
	if cfg.Textfile != "" && !isValidPath(cfg.Textfile) {
		v.addError("metrics.textfile", cfg.Textfile, "invalid file path")
	}
}

func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Defaults()
	return &cfg
}

func hasField(err error, field string) bool {
	errs, ok := err.(ValidationErrors)
	if !ok {
		return false
	}
	for _, f := range errs.Fields() {
		if f == field {
			return true
		}
	}
	return false
}

func TestValidator_ValidConfig(t *testing.T) {
	cfg := validConfig()
	v := NewValidator()
	if err := v.Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidator_InvalidLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "invalid"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil, want error for invalid log level")
	}
	if _, ok := err.(ValidationErrors); !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if !hasField(err, "log.level") {
		t.Error("expected error for log.level field")
	}
}

func TestValidator_InvalidFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Format = "invalid"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil, want error for invalid log format")
	}
	if !strings.Contains(err.Error(), "log.format") {
		t.Errorf("error = %v, should mention log.format", err)
	}
}

func TestValidator_Session(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionConfig)
		field  string
	}{
		{"zero count", func(s *SessionConfig) { s.Count = 0 }, "session.count"},
		{"negative count", func(s *SessionConfig) { s.Count = -3 }, "session.count"},
		{"negative failed count", func(s *SessionConfig) { s.FailedCount = -1 }, "session.failed_count"},
		{"empty logs dir", func(s *SessionConfig) { s.LogsDir = "" }, "session.logs_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Session)
			err := ValidateConfig(cfg)
			if !hasField(err, tt.field) {
				t.Errorf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestValidator_FailedCountZeroIsUnset(t *testing.T) {
	cfg := validConfig()
	cfg.Session.FailedCount = 0
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidator_TracerPathRequiredWhenCallTrace(t *testing.T) {
	cfg := validConfig()
	cfg.Tracer.Path = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("Validate() error = %v, want nil while call trace is off", err)
	}

	cfg.Trace.Call = true
	if err := ValidateConfig(cfg); !hasField(err, "tracer.path") {
		t.Errorf("Validate() = %v, want error on tracer.path", err)
	}
}

func TestValidator_InvalidDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Tracer.StopTimeout = "soon"
	cfg.Sampling.Interval = "-5ms"

	err := ValidateConfig(cfg)
	if !hasField(err, "tracer.stop_timeout") {
		t.Errorf("Validate() = %v, want error on tracer.stop_timeout", err)
	}
	if !hasField(err, "sampling.interval") {
		t.Errorf("Validate() = %v, want error on sampling.interval", err)
	}
}

func TestValidator_Diagnostics(t *testing.T) {
	cfg := validConfig()
	cfg.Diagnostics.MinFreeFDPercent = 120
	cfg.Diagnostics.HistorySize = 0
	cfg.Diagnostics.CrashDumpMaxFiles = -1

	err := ValidateConfig(cfg)
	for _, field := range []string{
		"diagnostics.min_free_fd_percent",
		"diagnostics.history_size",
		"diagnostics.crashdump_max_files",
	} {
		if !hasField(err, field) {
			t.Errorf("Validate() = %v, want error on %s", err, field)
		}
	}
}

func TestValidator_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Session.Count = 0

	v := NewValidator()
	_ = v.Validate(cfg)
	if got := len(v.Errors()); got != 2 {
		t.Errorf("len(Errors()) = %d, want 2: %v", got, v.Errors())
	}
	if !v.Errors().HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "session.count", Value: 0, Message: "must be positive"}
	want := "config validation: session.count: must be positive (got: 0)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

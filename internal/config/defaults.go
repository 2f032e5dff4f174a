package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Session: SessionConfig{
			Count:   1,
			LogsDir: "logs",
		},
		Tracer: TracerConfig{
			Path:        "strace",
			StopTimeout: "2s",
		},
		Sampling: SamplingConfig{
			Interval: "20ms",
		},
		Diagnostics: DiagnosticsConfig{
			Preflight:         true,
			MinFreeFDPercent:  5,
			HistorySize:       120,
			CrashDumpDir:      ".runner/crashdumps",
			CrashDumpMaxFiles: 10,
		},
	}
}

const defaultConfigHeader = `# runner configuration
#
# Flags override environment variables (RUNNER_*), which override this file.
# trace.* select what is captured for failed attempts; successful attempts
# never write diagnostics.
`

// DefaultConfigYAML renders the built-in configuration as a commented YAML document.
func DefaultConfigYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(defaultConfigHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Defaults()); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	return buf.Bytes(), nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "RUNNER",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "RUNNER",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (RUNNER_*)
// 3. Project config (.runner.yaml in current directory)
// 4. User config (~/.config/runner/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".runner")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "runner"))
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	d := Defaults()

	l.v.SetDefault("log.level", d.Log.Level)
	l.v.SetDefault("log.format", d.Log.Format)

	l.v.SetDefault("session.count", d.Session.Count)
	l.v.SetDefault("session.failed_count", d.Session.FailedCount)
	l.v.SetDefault("session.logs_dir", d.Session.LogsDir)

	l.v.SetDefault("trace.sys", d.Trace.Sys)
	l.v.SetDefault("trace.call", d.Trace.Call)
	l.v.SetDefault("trace.log", d.Trace.Log)
	l.v.SetDefault("trace.net", d.Trace.Net)

	l.v.SetDefault("tracer.path", d.Tracer.Path)
	l.v.SetDefault("tracer.stop_timeout", d.Tracer.StopTimeout)

	l.v.SetDefault("sampling.interval", d.Sampling.Interval)

	l.v.SetDefault("diagnostics.preflight", d.Diagnostics.Preflight)
	l.v.SetDefault("diagnostics.min_free_fd_percent", d.Diagnostics.MinFreeFDPercent)
	l.v.SetDefault("diagnostics.history_size", d.Diagnostics.HistorySize)
	l.v.SetDefault("diagnostics.crashdump_dir", d.Diagnostics.CrashDumpDir)
	l.v.SetDefault("diagnostics.crashdump_max_files", d.Diagnostics.CrashDumpMaxFiles)

	l.v.SetDefault("metrics.textfile", d.Metrics.Textfile)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

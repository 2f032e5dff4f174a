package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RoyMattar/runner/internal/config"
	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/diagnostics"
	"github.com/RoyMattar/runner/internal/logging"
	"github.com/RoyMattar/runner/internal/session"
	"github.com/RoyMattar/runner/internal/supervisor"
	"github.com/RoyMattar/runner/internal/tracer"
)

var (
	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string

	// exitFunc ends the process once the summary is printed.
	exitFunc = os.Exit
)

// Short flag spellings of the original tool, accepted as long aliases.
var flagAliases = map[string]string{
	"fc": "failed-count",
	"st": "sys-trace",
	"ct": "call-trace",
	"lt": "log-trace",
	"nt": "net-trace",
}

type rootOptions struct {
	v       *viper.Viper
	cfgFile string
	debug   bool
}

// NewRootCmd builds the runner command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "runner [flags] <command>",
		Short: "Run a command repeatedly and capture diagnostics of failed runs",
		Long: `runner executes a command a number of times, tolerating a bounded number of
failures. For every failed run it can record resource usage over time, the
command's output and a syscall trace under logs/<session>/.

When done (or interrupted) it prints a summary of exit codes and exits with
the most frequent one.

The command is split on whitespace; quote it to pass arguments:

  runner -c 10 --failed-count 3 --sys-trace --log-trace "curl -sf http://localhost:8080"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if long, ok := flagAliases[name]; ok {
			name = long
		}
		return pflag.NormalizedName(name)
	})

	d := config.Defaults()
	flags.IntP("count", "c", d.Session.Count, "number of times to run the command")
	flags.Int("failed-count", 0, "number of failed runs after which to give up (alias --fc)")
	flags.Bool("sys-trace", false, "record disk I/O, memory, process/CPU and network usage of failed runs (alias --st)")
	flags.Bool("call-trace", false, "record a syscall trace of failed runs (alias --ct)")
	flags.Bool("log-trace", false, "record stdout and stderr of failed runs (alias --lt)")
	flags.Bool("net-trace", false, "record network traffic of failed runs; not supported, ignored (alias --nt)")
	flags.String("logs-dir", d.Session.LogsDir, "directory holding one sub-directory per session")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "debug mode, log each step taken")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&opts.cfgFile, "config", "", "config file (default: .runner.yaml)")
	persistent.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	persistent.String("log-format", d.Log.Format, "log format (auto, text, json)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = opts.v.BindPFlag("session.count", flags.Lookup("count"))
	_ = opts.v.BindPFlag("session.failed_count", flags.Lookup("failed-count"))
	_ = opts.v.BindPFlag("session.logs_dir", flags.Lookup("logs-dir"))
	_ = opts.v.BindPFlag("trace.sys", flags.Lookup("sys-trace"))
	_ = opts.v.BindPFlag("trace.call", flags.Lookup("call-trace"))
	_ = opts.v.BindPFlag("trace.log", flags.Lookup("log-trace"))
	_ = opts.v.BindPFlag("trace.net", flags.Lookup("net-trace"))
	_ = opts.v.BindPFlag("log.level", persistent.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", persistent.Lookup("log-format"))

	cmd.AddCommand(newVersionCmd(), newDoctorCmd(opts), newInitCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	loader := config.NewLoaderWithViper(opts.v)
	if opts.cfgFile != "" {
		loader.WithConfigFile(opts.cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "loading configuration").WithCause(err)
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func runSession(cmd *cobra.Command, opts *rootOptions, args []string) error {
	command := strings.Join(args, " ")
	if strings.TrimSpace(command) == "" {
		return core.ErrValidation(core.CodeEmptyCommand, "command is empty")
	}
	// Zero is the "unset" value in configuration, but not a valid flag value.
	if f := cmd.Flags().Lookup("failed-count"); f.Changed {
		if n, _ := cmd.Flags().GetInt("failed-count"); n <= 0 {
			return core.ErrValidation(core.CodeInvalidFailedCount,
				fmt.Sprintf("%d is not a valid failed count (not a positive integer)", n))
		}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return core.ErrValidation(core.CodeInvalidConfig, "invalid configuration").WithCause(err)
	}

	sessionID := uuid.NewString()
	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}).WithSession(sessionID)
	started := time.Now()

	monitorCfg := diagnostics.DefaultMonitorConfig()
	monitorCfg.HistorySize = cfg.Diagnostics.HistorySize
	monitor := diagnostics.NewResourceMonitor(monitorCfg, logger)
	dumps := diagnostics.NewCrashDumpWriter(cfg.Diagnostics.CrashDumpDir, cfg.Diagnostics.CrashDumpMaxFiles, logger, monitor).
		WithSession(sessionID)
	executor := diagnostics.NewSafeExecutor(monitor, dumps, logger, cfg.Diagnostics.Preflight, cfg.Diagnostics.MinFreeFDPercent)

	metrics := session.NewMetrics()
	writer := diagnostics.NewWriter(cfg.Session.LogsDir, started, logger).WithObserver(metrics.ObserveDiagnostic)

	sup := supervisor.New(command, supervisor.Options{
		Trace:          cfg.Trace,
		SampleInterval: cfg.Sampling.IntervalDuration(),
		Tracer:         tracer.New(cfg.Tracer.Path, cfg.Tracer.StopTimeoutDuration(), logger),
		Writer:         writer,
		Executor:       executor,
		Stdout:         cmd.OutOrStdout(),
		Stderr:         cmd.ErrOrStderr(),
		Logger:         logger,
	})

	agg := session.NewAggregator()
	flush := func() {
		logger.Debug("session finished",
			"attempts", agg.Total(),
			"diagnostics_written", writer.Written(),
			"diagnostics_failed", writer.Failures(),
		)
		if cfg.Metrics.Textfile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("metrics not written", "path", cfg.Metrics.Textfile, "error", err)
		}
	}
	term := session.NewTerminator(agg, session.TerminatorOptions{
		Abort:      sup.Abort,
		BeforeExit: flush,
		Out:        cmd.OutOrStdout(),
		Exit:       exitFunc,
		Logger:     logger,
	})

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigs)
		close(sigs)
	}()
	go term.Watch(sigs)

	logger.Info("session started",
		"command", command,
		"count", cfg.Session.Count,
		"failed_count", cfg.Session.FailedCount,
		"session_dir", writer.SessionDir(),
	)

	s := session.New(sup, agg, session.Options{
		Executor: executor,
		Metrics:  metrics,
		Logger:   logger,
	})
	_, runErr := s.Run(context.Background(), cfg.Session.Count, cfg.Session.FailedCount)

	if term.Finalizing() {
		// An interrupt owns the exit.
		<-term.Done()
		return nil
	}
	if runErr != nil {
		agg.Seal()
		_ = agg.WriteReport(cmd.OutOrStdout())
		flush()
		return runErr
	}
	if !term.Finalize("completed") {
		<-term.Done()
	}
	return nil
}

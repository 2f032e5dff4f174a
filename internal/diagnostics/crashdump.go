package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/fsutil"
	"github.com/RoyMattar/runner/internal/logging"
)

// DefaultCrashDumpDir is used when no directory is configured.
const DefaultCrashDumpDir = ".runner/crashdumps"

// CrashDump contains all information captured during a crash.
type CrashDump struct {
	Timestamp time.Time `json:"timestamp"`
	ProcessID int       `json:"process_id"`
	GoVersion string    `json:"go_version"`
	GOOS      string    `json:"goos"`
	GOARCH    string    `json:"goarch"`

	PanicValue string `json:"panic_value"`
	StackTrace string `json:"stack_trace,omitempty"`

	ResourceState   ResourceSnapshot   `json:"resource_state"`
	ResourceHistory []ResourceSnapshot `json:"resource_history,omitempty"`

	SessionID string `json:"session_id,omitempty"`
	Command   string `json:"command,omitempty"`
	Iteration *int   `json:"iteration,omitempty"`
	WorkDir   string `json:"work_dir,omitempty"`

	RedactedEnv map[string]string `json:"redacted_env,omitempty"`
}

// CrashDumpWriter handles crash dump generation and persistence.
type CrashDumpWriter struct {
	dir          string
	maxFiles     int
	includeStack bool
	includeEnv   bool
	logger       *logging.Logger
	monitor      *ResourceMonitor

	sessionID string
	current   atomic.Pointer[core.Attempt]

	mu sync.Mutex // Protects file operations
}

// NewCrashDumpWriter creates a crash dump writer.
func NewCrashDumpWriter(dir string, maxFiles int, logger *logging.Logger, monitor *ResourceMonitor) *CrashDumpWriter {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if dir == "" {
		dir = DefaultCrashDumpDir
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CrashDumpWriter{
		dir:          dir,
		maxFiles:     maxFiles,
		includeStack: true,
		includeEnv:   true,
		logger:       logger,
		monitor:      monitor,
	}
}

// WithSession tags every dump with the session id.
func (w *CrashDumpWriter) WithSession(id string) *CrashDumpWriter {
	w.sessionID = id
	return w
}

// SetAttempt records the attempt in progress.
func (w *CrashDumpWriter) SetAttempt(a core.Attempt) {
	w.current.Store(&a)
}

// ClearAttempt clears the attempt in progress.
func (w *CrashDumpWriter) ClearAttempt() {
	w.current.Store(nil)
}

// WriteCrashDump generates and writes a crash dump.
func (w *CrashDumpWriter) WriteCrashDump(panicValue interface{}) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dump := CrashDump{
		Timestamp:  time.Now().UTC(),
		ProcessID:  os.Getpid(),
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		PanicValue: fmt.Sprintf("%v", panicValue),
		SessionID:  w.sessionID,
	}

	if w.includeStack {
		dump.StackTrace = string(debug.Stack())
	}

	if w.monitor != nil {
		dump.ResourceState = w.monitor.TakeSnapshot(context.Background())
		dump.ResourceHistory = w.monitor.GetHistory()
	}

	if a := w.current.Load(); a != nil {
		dump.Command = w.logger.Sanitize(a.Command)
		iteration := a.Iteration
		dump.Iteration = &iteration
	}
	if wd, err := os.Getwd(); err == nil {
		dump.WorkDir = wd
	}

	if w.includeEnv {
		dump.RedactedEnv = redactEnvironment()
	}

	filename := fmt.Sprintf("crash-%s.json", dump.Timestamp.Format("2006-01-02T15-04-05.000000000"))
	path := filepath.Join(w.dir, filename)

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling crash dump: %w", err)
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing crash dump: %w", err)
	}

	_ = w.cleanupOldDumps()

	return path, nil
}

// RecoverAndReturn recovers from panic, writes dump, and returns error instead of re-panicking.
// Usage: defer writer.RecoverAndReturn(&err)
//
//nolint:gocritic // ptrToRefParam: errPtr must be a pointer to modify the caller's error variable
func (w *CrashDumpWriter) RecoverAndReturn(errPtr *error) {
	if r := recover(); r != nil {
		path, dumpErr := w.WriteCrashDump(r)
		if dumpErr != nil {
			w.logger.Error("failed to write crash dump", "error", dumpErr, "panic", r)
		} else {
			w.logger.Error("crash dump written after panic", "path", path, "panic", r)
		}
		*errPtr = core.ErrInternal(core.CodeAttemptPanic, fmt.Sprintf("attempt panicked: %v", r)).
			WithDetail("dump", path)
	}
}

// cleanupOldDumps removes crash dumps exceeding maxFiles.
func (w *CrashDumpWriter) cleanupOldDumps() error {
	dumps, err := listDumps(w.dir)
	if err != nil {
		return err
	}

	for len(dumps) > w.maxFiles {
		path := filepath.Join(w.dir, dumps[0].Name())
		if err := os.Remove(path); err != nil {
			w.logger.Warn("failed to remove old crash dump", "path", path, "error", err)
		}
		dumps = dumps[1:]
	}
	return nil
}

// listDumps returns crash dump entries, oldest first.
func listDumps(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dumps []os.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".json") {
			dumps = append(dumps, e)
		}
	}
	// Names embed a sortable UTC timestamp.
	sort.Slice(dumps, func(i, j int) bool { return dumps[i].Name() < dumps[j].Name() })
	return dumps, nil
}

func redactEnvironment() map[string]string {
	result := make(map[string]string)
	sensitiveSubstrings := []string{
		"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL",
		"AUTH", "PRIVATE", "API_KEY", "APIKEY",
	}

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		keyUpper := strings.ToUpper(key)
		redacted := false
		for _, sensitive := range sensitiveSubstrings {
			if strings.Contains(keyUpper, sensitive) {
				redacted = true
				break
			}
		}

		if redacted {
			result[key] = "[REDACTED]"
		} else {
			result[key] = value
		}
	}
	return result
}

// LoadLatestCrashDump loads the most recent crash dump from the directory.
func LoadLatestCrashDump(dir string) (*CrashDump, error) {
	dumps, err := listDumps(dir)
	if err != nil {
		return nil, fmt.Errorf("reading crash dump dir: %w", err)
	}
	if len(dumps) == 0 {
		return nil, fmt.Errorf("no crash dumps found")
	}

	data, err := fsutil.ReadFileScoped(filepath.Join(dir, dumps[len(dumps)-1].Name()))
	if err != nil {
		return nil, fmt.Errorf("reading crash dump: %w", err)
	}

	var dump CrashDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parsing crash dump: %w", err)
	}
	return &dump, nil
}

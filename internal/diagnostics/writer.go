package diagnostics

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/fsutil"
	"github.com/RoyMattar/runner/internal/logging"
)

// FilePerm is the permission of diagnostic files.
const FilePerm = 0o644

// SessionTimestamp names a session directory after its start time, as
// fractional Unix seconds.
func SessionTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

// LogPath resolves <sessionDir>/<firstWord>_<iteration>_<subject>.<ext>.
func LogPath(sessionDir string, p core.Persistable) string {
	a := p.Attempt()
	name := fmt.Sprintf("%s_%d_%s.%s", filepath.Base(a.Name()), a.Iteration, p.Subject(), p.Extension())
	return filepath.Join(sessionDir, name)
}

// WriteObserver is notified after each persist attempt.
type WriteObserver func(subject string, err error)

// Writer persists diagnostics of failed attempts under one session directory.
// Failures are logged and counted; they never abort the caller.
type Writer struct {
	sessionDir string
	logger     *logging.Logger
	observer   WriteObserver

	written  atomic.Int64
	failures atomic.Int64
}

// NewWriter creates a writer for the session started at started. The session
// directory is created on the first write.
func NewWriter(logsRoot string, started time.Time, logger *logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		sessionDir: filepath.Join(logsRoot, SessionTimestamp(started)),
		logger:     logger,
	}
}

// WithObserver sets a callback invoked after every Persist.
func (w *Writer) WithObserver(fn WriteObserver) *Writer {
	w.observer = fn
	return w
}

// SessionDir returns the directory holding this session's files.
func (w *Writer) SessionDir() string {
	return w.sessionDir
}

// Persist renders p and writes it atomically. The returned error is an
// ErrIO for callers that want it; it has already been logged.
func (w *Writer) Persist(p core.Persistable) error {
	path := LogPath(w.sessionDir, p)
	err := w.persist(path, p)
	if w.observer != nil {
		w.observer(p.Subject(), err)
	}
	if err != nil {
		w.failures.Add(1)
		w.logger.Warn("diagnostic not written", "path", path, "subject", p.Subject(), "error", err)
		return err
	}
	w.written.Add(1)
	w.logger.Debug("diagnostic written", "path", path, "subject", p.Subject())
	return nil
}

func (w *Writer) persist(path string, p core.Persistable) error {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return core.ErrIO(path).WithCause(err)
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), FilePerm); err != nil {
		return core.ErrIO(path).WithCause(err)
	}
	return nil
}

// PersistAll writes every item and returns how many were written.
func (w *Writer) PersistAll(items ...core.Persistable) int {
	n := 0
	for _, p := range items {
		if w.Persist(p) == nil {
			n++
		}
	}
	return n
}

// Written returns the number of files written so far.
func (w *Writer) Written() int64 { return w.written.Load() }

// Failures returns the number of files that could not be written.
func (w *Writer) Failures() int64 { return w.failures.Load() }

package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteScript creates an executable shell script named name in a fresh
// temporary directory and returns its path.
func WriteScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)) //nolint:gosec // must be executable
	return path
}

// RequireTool skips the test when name is not on PATH.
func RequireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

// FakeTracer writes a stand-in for the syscall tracer. It prints its
// arguments, then waits for SIGINT and prints a detach line before exiting.
func FakeTracer(t *testing.T) string {
	t.Helper()
	return WriteScript(t, "fake-strace", `echo "attach $1 $2 $3" >&2
trap 'echo "+++ detached +++" >&2; exit 0' INT
while true; do sleep 0.01; done
`)
}

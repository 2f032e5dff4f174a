//go:build !windows

package tracer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoyMattar/runner/internal/core"
	"github.com/RoyMattar/runner/internal/logging"
	"github.com/RoyMattar/runner/internal/testutil"
)

var testAttempt = core.Attempt{Command: "sleep 1", Iteration: 2}

func startChild(t *testing.T) *exec.Cmd {
	t.Helper()
	child := exec.Command("sleep", "5")
	require.NoError(t, child.Start())
	t.Cleanup(func() {
		_ = child.Process.Kill()
		_ = child.Wait()
	})
	return child
}

func TestAttach_StopFlushesOutput(t *testing.T) {
	script := testutil.WriteScript(t, "fake-tracer", `echo "attach $1 $2 $3" >&2
trap 'echo "detached" >&2; exit 0' INT
while true; do sleep 0.01; done
`)
	child := startChild(t)
	tr := New(script, 2*time.Second, logging.NewNop())

	trace, err := tr.Attach(context.Background(), testAttempt, child.Process.Pid)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	trace.Stop()

	out := string(trace.Output())
	assert.Contains(t, out, "attach -f -p "+strconv.Itoa(child.Process.Pid))
	assert.Contains(t, out, "detached")

	var buf bytes.Buffer
	stream := trace.Stream()
	require.NoError(t, stream.Render(&buf))
	assert.Equal(t, out, buf.String())
	assert.Equal(t, testAttempt, stream.Attempt())
}

func TestStop_KillsAfterTimeout(t *testing.T) {
	script := testutil.WriteScript(t, "fake-tracer", `trap '' INT
while true; do sleep 0.01; done
`)
	child := startChild(t)
	tr := New(script, 100*time.Millisecond, logging.NewNop())

	trace, err := tr.Attach(context.Background(), testAttempt, child.Process.Pid)
	require.NoError(t, err)

	start := time.Now()
	trace.Stop()

	select {
	case <-trace.Done():
	default:
		t.Fatal("tracer still running after Stop")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStop_Idempotent(t *testing.T) {
	script := testutil.WriteScript(t, "fake-tracer", "exec sleep 5\n")
	child := startChild(t)
	trace, err := New(script, time.Second, nil).Attach(context.Background(), testAttempt, child.Process.Pid)
	require.NoError(t, err)

	trace.Kill()
	trace.Stop()
	trace.Kill()

	assert.Error(t, trace.Err())
}

func TestAttach_SpawnFailure(t *testing.T) {
	tr := New(filepath.Join(t.TempDir(), "no-such-tracer"), time.Second, nil)

	trace, err := tr.Attach(context.Background(), testAttempt, os.Getpid())

	assert.Nil(t, trace)
	require.Error(t, err)
	assert.True(t, core.IsSpawn(err))
}

func TestTrace_StreamNaming(t *testing.T) {
	trace := &Trace{attempt: testAttempt, done: make(chan struct{})}

	stream := trace.Stream()
	assert.Equal(t, "strace", stream.Subject())
	assert.Equal(t, "trace", stream.Extension())
	assert.Nil(t, trace.Output())
}

func TestNew_Defaults(t *testing.T) {
	tr := New("", 0, nil)

	assert.Equal(t, DefaultPath, tr.Path())
	assert.Equal(t, DefaultStopTimeout, tr.stopTimeout)
}

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoyMattar/runner/internal/config"
	"github.com/RoyMattar/runner/internal/testutil"
)

func TestRunAttempt_FailureSamplesEveryDimension(t *testing.T) {
	testutil.RequireTool(t, "sleep")
	script := testutil.WriteScript(t, "busy.sh", "sleep 0.2\nexit 3\n")
	s, h := newSupervisor(t, script, config.TraceConfig{Sys: true})

	code, err := s.RunAttempt(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 3, code)
	for _, subject := range []string{"disk_io", "memory", "proc_th_cpu", "network"} {
		data, err := os.ReadFile(filepath.Join(h.writer.SessionDir(), "busy.sh_0_"+subject+".log"))
		require.NoError(t, err, subject)
		assert.Contains(t, string(data), "1: ", subject)
	}

	cpu, err := os.ReadFile(filepath.Join(h.writer.SessionDir(), "busy.sh_0_proc_th_cpu.log"))
	require.NoError(t, err)
	first, _, _ := strings.Cut(string(cpu), "\n")
	assert.NotContains(t, first, "affinity=[]")
}

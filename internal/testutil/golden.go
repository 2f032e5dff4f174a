// Package testutil holds helpers shared by the runner's tests.
package testutil

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoyMattar/runner/internal/fsutil"
)

var update = flag.Bool("update", false, "update golden files")

// Golden compares output against files under a testdata directory.
type Golden struct {
	t       *testing.T
	baseDir string
}

// NewGolden creates a golden file helper rooted at baseDir.
func NewGolden(t *testing.T, baseDir string) *Golden {
	return &Golden{
		t:       t,
		baseDir: baseDir,
	}
}

// Assert compares actual against <baseDir>/<name>.golden. With -update the
// golden file is rewritten instead.
func (g *Golden) Assert(name string, actual []byte) {
	g.t.Helper()

	goldenPath := filepath.Join(g.baseDir, name+".golden")

	if *update {
		require.NoError(g.t, fsutil.WriteFileAtomic(goldenPath, actual, 0o644))
		g.t.Logf("updated golden file: %s", goldenPath)
		return
	}

	expected, err := fsutil.ReadFileScoped(goldenPath)
	require.NoError(g.t, err, "reading golden file %s", goldenPath)
	assert.Equal(g.t, string(expected), string(actual), "output mismatch for %s", name)
}

// AssertString compares string output against a golden file.
func (g *Golden) AssertString(name, actual string) {
	g.t.Helper()
	g.Assert(name, []byte(actual))
}

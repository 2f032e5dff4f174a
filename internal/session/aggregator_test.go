package session

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RoyMattar/runner/internal/testutil"
)

func TestAggregator_MostFrequent(t *testing.T) {
	tests := []struct {
		name  string
		codes []int
		want  int
	}{
		{"empty falls back to 1", nil, 1},
		{"single success", []int{0}, 0},
		{"majority failure", []int{0, 1, 0, 1, 1}, 1},
		{"tie goes to smallest code", []int{2, 7, 7, 2}, 2},
		{"signal code", []int{137, 137, 0}, 137},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			for i, c := range tt.codes {
				a.AddExitCode(i, c)
			}
			assert.Equal(t, tt.want, a.MostFrequent())
		})
	}
}

func TestAggregator_Report(t *testing.T) {
	a := NewAggregator()
	a.AddExitCode(0, 1)
	a.AddExitCode(1, 0)
	a.AddExitCode(2, 1)

	assert.Equal(t,
		"Summary:\n"+
			"Return code: 0; Frequency: 1; Iterations: [1]\n"+
			"Return code: 1; Frequency: 2; Iterations: [0, 2]\n",
		a.Report())
}

func TestAggregator_EmptyReport(t *testing.T) {
	assert.Equal(t, "Summary:\n", NewAggregator().Report())
}

func TestAggregator_SealIgnoresLateCodes(t *testing.T) {
	a := NewAggregator()
	require.True(t, a.AddExitCode(0, 0))

	a.Seal()

	assert.False(t, a.AddExitCode(1, 137))
	assert.Equal(t, 1, a.Total())
	assert.Equal(t, 0, a.MostFrequent())
}

func TestAggregator_RowsAreCopies(t *testing.T) {
	a := NewAggregator()
	a.AddExitCode(0, 1)

	rows := a.Rows()
	rows[0].Iterations[0] = 99

	assert.Equal(t, []int{0}, a.Rows()[0].Iterations)
}

func TestAggregator_FinalizeAndTerminate(t *testing.T) {
	a := NewAggregator()
	a.AddExitCode(0, 3)
	var out bytes.Buffer
	exitCode := -1

	a.FinalizeAndTerminate(&out, func(code int) { exitCode = code })

	assert.Equal(t, 3, exitCode)
	assert.Contains(t, out.String(), "Return code: 3; Frequency: 1; Iterations: [0]")
	assert.True(t, a.Sealed())
}

func TestAggregator_ConcurrentReads(t *testing.T) {
	a := NewAggregator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			a.AddExitCode(i, i%3)
		}(i)
		go func() {
			defer wg.Done()
			_ = a.Report()
			_ = a.MostFrequent()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, a.Total())
}

func TestAggregator_ReportGolden(t *testing.T) {
	a := NewAggregator()
	for i, code := range []int{0, 1, 0, 137, 1, 0} {
		a.AddExitCode(i, code)
	}

	testutil.NewGolden(t, "testdata").AssertString("mixed_report", a.Report())
}

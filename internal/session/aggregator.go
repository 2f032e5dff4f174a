package session

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/RoyMattar/runner/internal/core"
)

// Row is one exit code of the histogram.
type Row struct {
	Code       int
	Frequency  int
	Iterations []int
}

// Aggregator is the running histogram of exit codes. It is safe for
// concurrent use so the interrupt path can read it mid-attempt.
type Aggregator struct {
	mu        sync.Mutex
	histogram map[int][]int
	total     int
	sealed    bool
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{histogram: make(map[int][]int)}
}

// AddExitCode records code for iteration. It reports false once the
// aggregator is sealed, in which case nothing is recorded.
func (a *Aggregator) AddExitCode(iteration, code int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return false
	}
	a.histogram[code] = append(a.histogram[code], iteration)
	a.total++
	return true
}

// Seal freezes the histogram. Later AddExitCode calls are ignored.
func (a *Aggregator) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
}

// Sealed reports whether Seal was called.
func (a *Aggregator) Sealed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sealed
}

// Total returns the number of recorded attempts.
func (a *Aggregator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Rows returns the histogram ordered by ascending exit code.
func (a *Aggregator) Rows() []Row {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows := make([]Row, 0, len(a.histogram))
	for code, iterations := range a.histogram {
		rows = append(rows, Row{
			Code:       code,
			Frequency:  len(iterations),
			Iterations: append([]int(nil), iterations...),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows
}

// MostFrequent returns the exit code recorded most often. Ties go to the
// smallest code. With nothing recorded it returns core.ExitFallback.
func (a *Aggregator) MostFrequent() int {
	rows := a.Rows()
	if len(rows) == 0 {
		return core.ExitFallback
	}
	best := rows[0]
	for _, r := range rows[1:] {
		if r.Frequency > best.Frequency {
			best = r
		}
	}
	return best.Code
}

// Report renders the human-readable summary.
func (a *Aggregator) Report() string {
	var b strings.Builder
	b.WriteString("Summary:\n")
	for _, r := range a.Rows() {
		iterations := make([]string, len(r.Iterations))
		for i, it := range r.Iterations {
			iterations[i] = fmt.Sprint(it)
		}
		fmt.Fprintf(&b, "Return code: %d; Frequency: %d; Iterations: [%s]\n",
			r.Code, r.Frequency, strings.Join(iterations, ", "))
	}
	return b.String()
}

// WriteReport writes Report to w.
func (a *Aggregator) WriteReport(w io.Writer) error {
	_, err := io.WriteString(w, a.Report())
	return err
}

// FinalizeAndTerminate seals the aggregator, prints the report and calls
// exit with the most frequent exit code.
func (a *Aggregator) FinalizeAndTerminate(w io.Writer, exit func(int)) {
	a.Seal()
	_ = a.WriteReport(w)
	exit(a.MostFrequent())
}

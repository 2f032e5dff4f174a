package sampler

import (
	"context"
	"fmt"
	"io"

	"github.com/RoyMattar/runner/internal/core"
)

type memoryReading struct {
	RSS     uint64
	VMS     uint64
	Swap    uint64
	Percent float32
}

func (r memoryReading) String() string {
	return fmt.Sprintf("rss=%d vms=%d swap=%d percent=%.2f", r.RSS, r.VMS, r.Swap, r.Percent)
}

// Memory samples resident, virtual and swapped memory of the child together
// with its share of total physical memory.
type Memory struct {
	base
	series  Series[memoryReading]
	percent average
}

// NewMemory creates a memory sampler.
func NewMemory(attempt core.Attempt, proc Process, opts Options) *Memory {
	return &Memory{base: newBase(attempt, core.SubjectMemory, proc, opts)}
}

// Sample polls until the child exits.
func (m *Memory) Sample(ctx context.Context) error {
	return m.poll(ctx, func(ctx context.Context) error {
		info, err := m.proc.MemoryInfoWithContext(ctx)
		if err != nil {
			return err
		}
		pct, err := m.proc.MemoryPercentWithContext(ctx)
		if err != nil {
			return err
		}
		m.series.Append(memoryReading{
			RSS:     info.RSS,
			VMS:     info.VMS,
			Swap:    info.Swap,
			Percent: pct,
		})
		m.percent.add(float64(pct))
		return nil
	})
}

// Len returns the number of readings taken.
func (m *Memory) Len() int { return m.series.Len() }

// Render writes the readings, the last counters and the average utilization.
func (m *Memory) Render(w io.Writer) error {
	if err := m.series.WriteLines(w); err != nil {
		return err
	}
	last, ok := m.series.Last()
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nTotal memory counters: %s\nMemory utilization as percentage of total physical memory: %.2f%%\n",
		last, m.percent.value())
	return err
}

package sampler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/RoyMattar/runner/internal/core"
)

type procCPUReading struct {
	Children []int32
	Threads  int32
	User     float64
	System   float64
	Percent  float64
	Affinity []int32
}

func (r procCPUReading) String() string {
	return fmt.Sprintf("children=%v threads=%d user=%.2f system=%.2f cpu_percent=%.2f affinity=%v",
		r.Children, r.Threads, r.User, r.System, r.Percent, r.Affinity)
}

// ProcCPU samples child processes, thread count, CPU times, CPU utilization
// and CPU affinity of the child.
type ProcCPU struct {
	base
	series  Series[procCPUReading]
	percent average

	// previous CPU time and wall clock, for utilization between two polls
	lastBusy float64
	lastAt   time.Time
	now      func() time.Time

	childrenFailed bool
	affinityFailed bool
}

// NewProcCPU creates a process/thread/CPU sampler.
func NewProcCPU(attempt core.Attempt, proc Process, opts Options) *ProcCPU {
	return &ProcCPU{
		base: newBase(attempt, core.SubjectProcCPU, proc, opts),
		now:  time.Now,
	}
}

// Sample polls until the child exits.
func (p *ProcCPU) Sample(ctx context.Context) error {
	return p.poll(ctx, p.read)
}

func (p *ProcCPU) read(ctx context.Context) error {
	children, err := p.proc.ChildPIDsWithContext(ctx)
	if err != nil {
		p.noteOnce(&p.childrenFailed, "child lookup failed, recording no children", err)
		children = nil
	}
	threads, err := p.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return err
	}
	times, err := p.proc.TimesWithContext(ctx)
	if err != nil {
		return err
	}
	affinity, err := p.proc.CPUAffinityWithContext(ctx)
	if err != nil {
		p.noteOnce(&p.affinityFailed, "cpu affinity unavailable", err)
		affinity = nil
	}

	r := procCPUReading{
		Children: children,
		Threads:  threads,
		User:     times.User,
		System:   times.System,
		Percent:  p.utilization(times.User + times.System),
		Affinity: affinity,
	}
	p.series.Append(r)
	p.percent.add(r.Percent)
	return nil
}

// noteOnce logs a degraded dimension the first time it fails in an attempt.
func (p *ProcCPU) noteOnce(seen *bool, msg string, err error) {
	if *seen {
		return
	}
	*seen = true
	p.opts.Logger.WithSubject(p.subject).Debug(msg, "error", err)
}

// utilization returns CPU percent since the previous poll. The first poll
// has no baseline and reports zero.
func (p *ProcCPU) utilization(busy float64) float64 {
	at := p.now()
	defer func() {
		p.lastBusy, p.lastAt = busy, at
	}()
	if p.lastAt.IsZero() {
		return 0
	}
	wall := at.Sub(p.lastAt).Seconds()
	if wall <= 0 {
		return 0
	}
	return (busy - p.lastBusy) / wall * 100
}

// Len returns the number of readings taken.
func (p *ProcCPU) Len() int { return p.series.Len() }

// Render writes the readings, the last CPU times and the average utilization.
func (p *ProcCPU) Render(w io.Writer) error {
	if err := p.series.WriteLines(w); err != nil {
		return err
	}
	last, ok := p.series.Last()
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nTotal CPU times: user=%.2f system=%.2f\nAverage CPU percent: %.2f%%\n",
		last.User, last.System, p.percent.value())
	return err
}

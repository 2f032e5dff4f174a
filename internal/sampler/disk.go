package sampler

import (
	"context"
	"fmt"
	"io"

	"github.com/RoyMattar/runner/internal/core"
)

type diskReading struct {
	ReadCount  uint64
	WriteCount uint64
	ReadBytes  uint64
	WriteBytes uint64
}

func (r diskReading) String() string {
	return fmt.Sprintf("read_count=%d write_count=%d read_bytes=%d write_bytes=%d",
		r.ReadCount, r.WriteCount, r.ReadBytes, r.WriteBytes)
}

// DiskIO samples the child's disk I/O counters. Reading them for a process
// owned by another user usually requires elevated privilege.
type DiskIO struct {
	base
	series Series[diskReading]
}

// NewDiskIO creates a disk I/O sampler.
func NewDiskIO(attempt core.Attempt, proc Process, opts Options) *DiskIO {
	return &DiskIO{base: newBase(attempt, core.SubjectDiskIO, proc, opts)}
}

// Sample polls until the child exits.
func (d *DiskIO) Sample(ctx context.Context) error {
	return d.poll(ctx, func(ctx context.Context) error {
		counters, err := d.proc.IOCountersWithContext(ctx)
		if err != nil {
			return err
		}
		d.series.Append(diskReading{
			ReadCount:  counters.ReadCount,
			WriteCount: counters.WriteCount,
			ReadBytes:  counters.ReadBytes,
			WriteBytes: counters.WriteBytes,
		})
		return nil
	})
}

// Len returns the number of readings taken.
func (d *DiskIO) Len() int { return d.series.Len() }

// Render writes the readings and the last counters.
func (d *DiskIO) Render(w io.Writer) error {
	if err := d.series.WriteLines(w); err != nil {
		return err
	}
	last, ok := d.series.Last()
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nTotal disk I/O counters: %s\n", last)
	return err
}

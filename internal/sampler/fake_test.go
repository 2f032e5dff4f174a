package sampler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// fakeProcess reports itself running for the first `runs` liveness checks.
type fakeProcess struct {
	runs   int64
	checks atomic.Int64

	mu       sync.Mutex
	reads    int
	status   []string
	readErr  error
	children []int32
	childErr error
	cpuErr   error
	memPct   []float32
	busy     []float64
	conns    []net.ConnectionStat
}

var _ Process = (*fakeProcess)(nil)

func (f *fakeProcess) IsRunningWithContext(context.Context) (bool, error) {
	return f.checks.Add(1) <= f.runs, nil
}

func (f *fakeProcess) StatusWithContext(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		return []string{process.Running}, nil
	}
	return f.status, nil
}

func (f *fakeProcess) next() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	f.reads++
	return f.reads, nil
}

func (f *fakeProcess) IOCountersWithContext(context.Context) (*process.IOCountersStat, error) {
	n, err := f.next()
	if err != nil {
		return nil, err
	}
	u := uint64(n)
	return &process.IOCountersStat{ReadCount: u, WriteCount: 2 * u, ReadBytes: 10 * u, WriteBytes: 20 * u}, nil
}

func (f *fakeProcess) MemoryInfoWithContext(context.Context) (*process.MemoryInfoStat, error) {
	n, err := f.next()
	if err != nil {
		return nil, err
	}
	u := uint64(n)
	return &process.MemoryInfoStat{RSS: 100 * u, VMS: 1000 * u, Swap: 0}, nil
}

func (f *fakeProcess) MemoryPercentWithContext(context.Context) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.reads - 1
	if i < len(f.memPct) {
		return f.memPct[i], nil
	}
	return 0, nil
}

func (f *fakeProcess) ChildPIDsWithContext(context.Context) ([]int32, error) {
	if f.childErr != nil {
		return nil, f.childErr
	}
	return f.children, nil
}

func (f *fakeProcess) NumThreadsWithContext(context.Context) (int32, error) {
	return 4, nil
}

func (f *fakeProcess) TimesWithContext(context.Context) (*cpu.TimesStat, error) {
	n, err := f.next()
	if err != nil {
		return nil, err
	}
	var busy float64
	if n-1 < len(f.busy) {
		busy = f.busy[n-1]
	}
	return &cpu.TimesStat{User: busy, System: 0}, nil
}

func (f *fakeProcess) CPUAffinityWithContext(context.Context) ([]int32, error) {
	if f.cpuErr != nil {
		return nil, f.cpuErr
	}
	return []int32{0, 1}, nil
}

func (f *fakeProcess) ConnectionsWithContext(context.Context) ([]net.ConnectionStat, error) {
	if _, err := f.next(); err != nil {
		return nil, err
	}
	return f.conns, nil
}

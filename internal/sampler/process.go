package sampler

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Process is the read-only view of a child process shared by every sampler of
// an attempt. It exposes no way to signal the child.
type Process interface {
	IsRunningWithContext(ctx context.Context) (bool, error)
	StatusWithContext(ctx context.Context) ([]string, error)
	IOCountersWithContext(ctx context.Context) (*process.IOCountersStat, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	MemoryPercentWithContext(ctx context.Context) (float32, error)
	ChildPIDsWithContext(ctx context.Context) ([]int32, error)
	NumThreadsWithContext(ctx context.Context) (int32, error)
	TimesWithContext(ctx context.Context) (*cpu.TimesStat, error)
	CPUAffinityWithContext(ctx context.Context) ([]int32, error)
	ConnectionsWithContext(ctx context.Context) ([]net.ConnectionStat, error)
}

var _ Process = (*OSProcess)(nil)

// OSProcess is the Process of a live pid. It reads children and CPU affinity
// straight from the kernel where the platform allows it and falls back to
// gopsutil elsewhere.
type OSProcess struct {
	*process.Process
}

// Open returns the Process for pid. It fails when pid does not exist.
func Open(ctx context.Context, pid int) (*OSProcess, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid)) // #nosec G115 -- pids fit in int32
	if err != nil {
		return nil, err
	}
	return &OSProcess{Process: proc}, nil
}

// ChildPIDsWithContext returns the pids of the direct children. A process
// without children yields an empty slice and no error.
func (p *OSProcess) ChildPIDsWithContext(ctx context.Context) ([]int32, error) {
	if pids, err := childPIDs(p.Pid); err == nil {
		return pids, nil
	}
	children, err := p.Process.ChildrenWithContext(ctx)
	if errors.Is(err, process.ErrorNoChildren) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pids := make([]int32, 0, len(children))
	for _, c := range children {
		pids = append(pids, c.Pid)
	}
	return pids, nil
}

// CPUAffinityWithContext returns the CPUs the process may run on.
func (p *OSProcess) CPUAffinityWithContext(ctx context.Context) ([]int32, error) {
	if cpus, err := cpuAffinity(p.Pid); !errors.Is(err, errUnsupported) {
		return cpus, err
	}
	return p.Process.CPUAffinityWithContext(ctx)
}

var errUnsupported = errors.New("not supported on this platform")

// NetCounters reads system-wide network I/O counters.
type NetCounters func(ctx context.Context) ([]net.IOCountersStat, error)

// SystemNetCounters returns the counters summed over all interfaces.
func SystemNetCounters(ctx context.Context) ([]net.IOCountersStat, error) {
	return net.IOCountersWithContext(ctx, false)
}

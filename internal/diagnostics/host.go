package diagnostics

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine the runner supervises commands on.
// Every field is best-effort and left zero when unavailable.
type HostInfo struct {
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	CPUModel   string `json:"cpu_model"`
	CPUCores   int    `json:"cpu_cores"`
	CPUThreads int    `json:"cpu_threads"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedPct float64 `json:"mem_used_percent"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	// Free space on the file system holding the logs root.
	LogsDir    string  `json:"logs_dir"`
	LogsFreeGB float64 `json:"logs_free_gb"`

	OpenFDs int `json:"open_fds"`
	MaxFDs  int `json:"max_fds"`
}

// CollectHostInfo gathers host facts. logsDir need not exist yet; the
// nearest existing parent is measured instead.
func CollectHostInfo(ctx context.Context, logsDir string) HostInfo {
	info := HostInfo{
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		LogsDir: logsDir,
	}

	collectCPU(ctx, &info)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotalMB = float64(vm.Total) / 1024 / 1024
		info.MemUsedPct = vm.UsedPercent
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		info.LoadAvg1 = avg.Load1
		info.LoadAvg5 = avg.Load5
		info.LoadAvg15 = avg.Load15
	}

	if usage, err := disk.UsageWithContext(ctx, existingParent(logsDir)); err == nil {
		info.LogsFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	}

	info.OpenFDs, info.MaxFDs = CountFDs(ctx)
	return info
}

func collectCPU(ctx context.Context, info *HostInfo) {
	// ghw reads the topology straight from sysfs/WMI; gopsutil fills gaps.
	if c, err := ghw.CPU(); err == nil && c != nil {
		info.CPUCores = int(c.TotalCores)
		if len(c.Processors) > 0 {
			info.CPUModel = strings.TrimSpace(c.Processors[0].Model)
		}
	}
	if info.CPUModel == "" {
		if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
			info.CPUModel = strings.TrimSpace(infos[0].ModelName)
		}
	}
	if info.CPUCores == 0 {
		if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
			info.CPUCores = cores
		}
	}
	if threads, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUThreads = threads
	}
}

func existingParent(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

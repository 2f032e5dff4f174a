package diagnostics

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoyMattar/runner/internal/logging"
)

// ResourceSnapshot captures the runner's own resource state at a point in time.
type ResourceSnapshot struct {
	Timestamp      time.Time     `json:"timestamp"`
	OpenFDs        int           `json:"open_fds"`
	MaxFDs         int           `json:"max_fds"`
	FDUsagePercent float64       `json:"fd_usage_percent"`
	Goroutines     int           `json:"goroutines"`
	HeapAllocMB    float64       `json:"heap_alloc_mb"`
	HeapInUseMB    float64       `json:"heap_in_use_mb"`
	NumGC          uint32        `json:"num_gc"`
	Uptime         time.Duration `json:"uptime"`
	AttemptsRun    int64         `json:"attempts_run"`
	AttemptsActive int           `json:"attempts_active"`
}

// ResourceTrend captures resource usage trends over time.
type ResourceTrend struct {
	FDGrowthRate        float64  // FDs per hour
	GoroutineGrowthRate float64  // Goroutines per hour
	MemoryGrowthRate    float64  // MB per hour
	IsHealthy           bool     // Overall health assessment
	Warnings            []string // Trend-based warnings
}

// HealthWarning represents a single health concern.
type HealthWarning struct {
	Level   string  // "warning" or "critical"
	Type    string  // "fd", "goroutine", "memory"
	Message string  // Human-readable description
	Value   float64 // Current value
	Limit   float64 // Threshold that was exceeded
}

// MonitorConfig holds the thresholds of a ResourceMonitor.
type MonitorConfig struct {
	FDThresholdPercent int
	GoroutineThreshold int
	MemoryThresholdMB  int
	HistorySize        int
}

// DefaultMonitorConfig returns thresholds suited to a long repeat session.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		FDThresholdPercent: 80,
		GoroutineThreshold: 1000,
		MemoryThresholdMB:  1024,
		HistorySize:        120,
	}
}

// ResourceMonitor records a snapshot of the runner after every attempt so
// that leaks across many attempts show up as trends.
type ResourceMonitor struct {
	cfg    MonitorConfig
	logger *logging.Logger

	history []ResourceSnapshot
	mu      sync.RWMutex

	attemptsRun    atomic.Int64
	attemptsActive atomic.Int32

	started time.Time
	now     func() time.Time
}

// NewResourceMonitor creates a new resource monitor.
func NewResourceMonitor(cfg MonitorConfig, logger *logging.Logger) *ResourceMonitor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultMonitorConfig().HistorySize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ResourceMonitor{
		cfg:     cfg,
		logger:  logger,
		history: make([]ResourceSnapshot, 0, cfg.HistorySize),
		started: time.Now(),
		now:     time.Now,
	}
}

// TakeSnapshot captures current resource state.
func (m *ResourceMonitor) TakeSnapshot(ctx context.Context) ResourceSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	openFDs, maxFDs := CountFDs(ctx)
	fdPercent := 0.0
	if maxFDs > 0 {
		fdPercent = float64(openFDs) / float64(maxFDs) * 100
	}

	return ResourceSnapshot{
		Timestamp:      m.now(),
		OpenFDs:        openFDs,
		MaxFDs:         maxFDs,
		FDUsagePercent: fdPercent,
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocMB:    float64(memStats.HeapAlloc) / 1024 / 1024,
		HeapInUseMB:    float64(memStats.HeapInuse) / 1024 / 1024,
		NumGC:          memStats.NumGC,
		Uptime:         time.Since(m.started),
		AttemptsRun:    m.attemptsRun.Load(),
		AttemptsActive: int(m.attemptsActive.Load()),
	}
}

// Record takes a snapshot, appends it to the bounded history and logs any
// threshold or trend warnings.
func (m *ResourceMonitor) Record(ctx context.Context) ResourceSnapshot {
	snapshot := m.TakeSnapshot(ctx)
	m.recordSnapshot(snapshot)

	for _, w := range m.CheckHealth(ctx) {
		m.logger.Warn("resource warning",
			"type", w.Type,
			"level", w.Level,
			"value", w.Value,
			"limit", w.Limit,
			"message", w.Message,
		)
	}
	if trend := m.GetTrend(); !trend.IsHealthy {
		for _, msg := range trend.Warnings {
			m.logger.Warn("resource trend", "message", msg)
		}
	}
	return snapshot
}

func (m *ResourceMonitor) recordSnapshot(s ResourceSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, s)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[len(m.history)-m.cfg.HistorySize:]
	}
}

// GetHistory returns historical snapshots.
func (m *ResourceMonitor) GetHistory() []ResourceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ResourceSnapshot, len(m.history))
	copy(result, m.history)
	return result
}

// GetLatest returns the most recent snapshot.
func (m *ResourceMonitor) GetLatest() (ResourceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return ResourceSnapshot{}, false
	}
	return m.history[len(m.history)-1], true
}

// GetTrend analyzes recent snapshots for concerning trends.
func (m *ResourceMonitor) GetTrend() ResourceTrend {
	history := m.GetHistory()
	if len(history) < 2 {
		return ResourceTrend{IsHealthy: true}
	}

	first := history[0]
	last := history[len(history)-1]
	duration := last.Timestamp.Sub(first.Timestamp).Hours()

	if duration < 0.01 { // Less than 36 seconds
		return ResourceTrend{IsHealthy: true}
	}

	trend := ResourceTrend{
		FDGrowthRate:        float64(last.OpenFDs-first.OpenFDs) / duration,
		GoroutineGrowthRate: float64(last.Goroutines-first.Goroutines) / duration,
		MemoryGrowthRate:    (last.HeapAllocMB - first.HeapAllocMB) / duration,
		IsHealthy:           true,
	}

	if trend.FDGrowthRate > 10 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("FD count growing at %.1f/hour (potential leak)", trend.FDGrowthRate))
	}
	if trend.GoroutineGrowthRate > 100 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("Goroutine count growing at %.1f/hour (potential leak)", trend.GoroutineGrowthRate))
	}
	if trend.MemoryGrowthRate > 100 {
		trend.IsHealthy = false
		trend.Warnings = append(trend.Warnings,
			fmt.Sprintf("Memory growing at %.1f MB/hour", trend.MemoryGrowthRate))
	}

	return trend
}

// AttemptStarted is called when an attempt spawns its child.
func (m *ResourceMonitor) AttemptStarted() {
	m.attemptsRun.Add(1)
	m.attemptsActive.Add(1)
}

// AttemptFinished is called when an attempt's child has been reaped.
func (m *ResourceMonitor) AttemptFinished() {
	m.attemptsActive.Add(-1)
}

// CheckHealth returns warnings if thresholds are exceeded.
func (m *ResourceMonitor) CheckHealth(ctx context.Context) []HealthWarning {
	snapshot, ok := m.GetLatest()
	if !ok {
		snapshot = m.TakeSnapshot(ctx)
	}

	var warnings []HealthWarning

	if limit := m.cfg.FDThresholdPercent; limit > 0 && snapshot.FDUsagePercent > float64(limit) {
		level := "warning"
		if snapshot.FDUsagePercent > 90 {
			level = "critical"
		}
		warnings = append(warnings, HealthWarning{
			Level:   level,
			Type:    "fd",
			Message: fmt.Sprintf("FD usage at %.1f%% (threshold: %d%%)", snapshot.FDUsagePercent, limit),
			Value:   snapshot.FDUsagePercent,
			Limit:   float64(limit),
		})
	}

	if limit := m.cfg.GoroutineThreshold; limit > 0 && snapshot.Goroutines > limit {
		level := "warning"
		if snapshot.Goroutines > limit*2 {
			level = "critical"
		}
		warnings = append(warnings, HealthWarning{
			Level:   level,
			Type:    "goroutine",
			Message: fmt.Sprintf("Goroutine count at %d (threshold: %d)", snapshot.Goroutines, limit),
			Value:   float64(snapshot.Goroutines),
			Limit:   float64(limit),
		})
	}

	if limit := m.cfg.MemoryThresholdMB; limit > 0 && snapshot.HeapAllocMB > float64(limit) {
		level := "warning"
		if snapshot.HeapAllocMB > float64(limit)*1.5 {
			level = "critical"
		}
		warnings = append(warnings, HealthWarning{
			Level:   level,
			Type:    "memory",
			Message: fmt.Sprintf("Heap usage at %.1f MB (threshold: %d MB)", snapshot.HeapAllocMB, limit),
			Value:   snapshot.HeapAllocMB,
			Limit:   float64(limit),
		})
	}

	return warnings
}

// Uptime returns the time since the monitor was created.
func (m *ResourceMonitor) Uptime() time.Duration {
	return time.Since(m.started)
}

package diagnostics

import (
	"context"
	"testing"
	"time"
)

func TestNewResourceMonitor_Defaults(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{}, nil)

	if m.cfg.HistorySize != 120 {
		t.Errorf("HistorySize = %d, want 120", m.cfg.HistorySize)
	}
	if _, ok := m.GetLatest(); ok {
		t.Error("expected empty history")
	}
}

func TestResourceMonitor_TakeSnapshot(t *testing.T) {
	m := NewResourceMonitor(DefaultMonitorConfig(), nil)
	m.AttemptStarted()

	s := m.TakeSnapshot(context.Background())

	if s.Goroutines <= 0 {
		t.Errorf("Goroutines = %d, want > 0", s.Goroutines)
	}
	if s.HeapAllocMB <= 0 {
		t.Errorf("HeapAllocMB = %f, want > 0", s.HeapAllocMB)
	}
	if s.AttemptsRun != 1 || s.AttemptsActive != 1 {
		t.Errorf("AttemptsRun=%d AttemptsActive=%d, want 1/1", s.AttemptsRun, s.AttemptsActive)
	}

	m.AttemptFinished()
	if s := m.TakeSnapshot(context.Background()); s.AttemptsActive != 0 {
		t.Errorf("AttemptsActive = %d after finish, want 0", s.AttemptsActive)
	}
}

func TestResourceMonitor_HistoryBounded(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{HistorySize: 3}, nil)

	for i := 0; i < 5; i++ {
		m.Record(context.Background())
	}

	if got := len(m.GetHistory()); got != 3 {
		t.Errorf("history length = %d, want 3", got)
	}
}

func TestResourceMonitor_TrendDetectsGrowth(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{HistorySize: 10}, nil)
	base := time.Now()
	m.recordSnapshot(ResourceSnapshot{Timestamp: base, OpenFDs: 10, Goroutines: 10, HeapAllocMB: 10})
	m.recordSnapshot(ResourceSnapshot{Timestamp: base.Add(time.Hour), OpenFDs: 100, Goroutines: 500, HeapAllocMB: 400})

	trend := m.GetTrend()

	if trend.IsHealthy {
		t.Error("expected unhealthy trend")
	}
	if len(trend.Warnings) != 3 {
		t.Errorf("warnings = %v, want 3", trend.Warnings)
	}
}

func TestResourceMonitor_TrendShortWindowHealthy(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{HistorySize: 10}, nil)
	base := time.Now()
	m.recordSnapshot(ResourceSnapshot{Timestamp: base, OpenFDs: 10})
	m.recordSnapshot(ResourceSnapshot{Timestamp: base.Add(time.Second), OpenFDs: 1000})

	if !m.GetTrend().IsHealthy {
		t.Error("expected healthy trend for a window under 36s")
	}
}

func TestResourceMonitor_CheckHealth(t *testing.T) {
	m := NewResourceMonitor(MonitorConfig{
		FDThresholdPercent: 50,
		GoroutineThreshold: 10,
		MemoryThresholdMB:  100,
		HistorySize:        5,
	}, nil)
	m.recordSnapshot(ResourceSnapshot{FDUsagePercent: 95, Goroutines: 25, HeapAllocMB: 120})

	warnings := m.CheckHealth(context.Background())

	levels := map[string]string{}
	for _, w := range warnings {
		levels[w.Type] = w.Level
	}
	if levels["fd"] != "critical" {
		t.Errorf("fd level = %q, want critical", levels["fd"])
	}
	if levels["goroutine"] != "critical" {
		t.Errorf("goroutine level = %q, want critical", levels["goroutine"])
	}
	if levels["memory"] != "warning" {
		t.Errorf("memory level = %q, want warning", levels["memory"])
	}
}

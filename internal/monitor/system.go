package monitor

import (
	"sync"
	"time"
)

// DefaultMetricsWindow is the trailing window used for dashboard metrics.
const DefaultMetricsWindow = 5 * time.Minute

// DefaultAlertWindow bounds which alerts count as active.
const DefaultAlertWindow = 10 * time.Minute

// DashboardData is the full monitoring payload for the status surface.
type DashboardData struct {
	Timestamp time.Time              `json:"timestamp"`
	Calls     map[string]CallMetrics `json:"api_metrics"`
	Writes    WriteMetrics           `json:"db_metrics"`
	Alerts    []Alert                `json:"alerts"`
}

// System aggregates per-source call trackers, the write monitor, and the
// alert manager.
type System struct {
	mu       sync.Mutex
	trackers map[string]*CallTracker

	writes *WriteMonitor
	alerts *AlertManager
	window time.Duration
}

// NewSystem creates a monitoring system with default thresholds.
func NewSystem() *System {
	return &System{
		trackers: make(map[string]*CallTracker),
		writes:   NewWriteMonitor(),
		alerts:   NewAlertManager(DefaultThresholds()),
		window:   DefaultMetricsWindow,
	}
}

// Tracker returns the call tracker for a source, creating it on first use.
func (s *System) Tracker(service string) *CallTracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[service]
	if !ok {
		t = NewCallTracker(service)
		s.trackers[service] = t
	}
	return t
}

// Writes returns the sink write monitor.
func (s *System) Writes() *WriteMonitor {
	return s.writes
}

// Alerts returns the alert manager.
func (s *System) Alerts() *AlertManager {
	return s.alerts
}

// DashboardData collects metrics for every source and the sink, re-evaluates
// alert thresholds against them, and returns the combined payload.
func (s *System) DashboardData() DashboardData {
	s.mu.Lock()
	trackers := make(map[string]*CallTracker, len(s.trackers))
	for name, t := range s.trackers {
		trackers[name] = t
	}
	window := s.window
	s.mu.Unlock()

	calls := make(map[string]CallMetrics, len(trackers))
	for name, t := range trackers {
		m := t.Metrics(window)
		calls[name] = m
		s.alerts.CheckCalls(name, m)
	}

	writes := s.writes.Metrics(window)
	s.alerts.CheckWrites(writes)

	return DashboardData{
		Timestamp: time.Now().UTC(),
		Calls:     calls,
		Writes:    writes,
		Alerts:    s.alerts.Active(DefaultAlertWindow),
	}
}

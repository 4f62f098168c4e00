package monitor

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func callMetricsWithFailures(total, failures int) CallMetrics {
	tr := NewCallTracker("svc")
	for i := 0; i < total-failures; i++ {
		tr.Record(CallRecord{Success: true})
	}
	for i := 0; i < failures; i++ {
		tr.Record(CallRecord{Success: false, ErrClass: ErrClassNetwork})
	}
	return tr.Metrics(5 * time.Minute)
}

func TestAlertManager_ErrorRateAboveThreshold(t *testing.T) {
	a := NewAlertManager(DefaultThresholds())

	// 3 of 20 failed: 15% against a 10% threshold.
	raised := a.CheckCalls("binance", callMetricsWithFailures(20, 3))
	if len(raised) != 1 {
		t.Fatalf("raised %d alerts, want 1", len(raised))
	}
	al := raised[0]
	if al.Type != AlertAPIErrorRate {
		t.Errorf("type = %q, want %q", al.Type, AlertAPIErrorRate)
	}
	if al.Level != LevelWarning {
		t.Errorf("level = %q, want %q", al.Level, LevelWarning)
	}
	if al.Service != "binance" {
		t.Errorf("service = %q, want binance", al.Service)
	}
	if al.ID == uuid.Nil {
		t.Error("alert ID not assigned")
	}
}

func TestAlertManager_ErrorRateBelowThreshold(t *testing.T) {
	a := NewAlertManager(DefaultThresholds())

	// 1 of 20 failed: 5%, under the 10% threshold.
	raised := a.CheckCalls("binance", callMetricsWithFailures(20, 1))
	if len(raised) != 0 {
		t.Fatalf("raised %d alerts, want 0", len(raised))
	}
}

func TestAlertManager_ConsecutiveCallFailures(t *testing.T) {
	a := NewAlertManager(DefaultThresholds())

	m := CallMetrics{ConsecutiveFailures: 5}
	raised := a.CheckCalls("deribit", m)
	if len(raised) != 1 || raised[0].Type != AlertAPIConsecutiveFails {
		t.Fatalf("raised = %+v, want one %s alert", raised, AlertAPIConsecutiveFails)
	}

	m.ConsecutiveFailures = 4
	if got := a.CheckCalls("deribit", m); len(got) != 0 {
		t.Errorf("raised %d alerts below the threshold, want 0", len(got))
	}
}

func TestAlertManager_WriteFailures(t *testing.T) {
	a := NewAlertManager(DefaultThresholds())

	// 2 of 20 failed: 10% against a 5% threshold.
	raised := a.CheckWrites(WriteMetrics{RecentWrites: 20, RecentFailures: 2})
	if len(raised) != 1 {
		t.Fatalf("raised %d alerts, want 1", len(raised))
	}
	if raised[0].Type != AlertDBWriteFailure || raised[0].Level != LevelCritical {
		t.Errorf("alert = %+v, want critical %s", raised[0], AlertDBWriteFailure)
	}

	raised = a.CheckWrites(WriteMetrics{RecentWrites: 20, RecentFailures: 2, ConsecutiveFailures: 3})
	if len(raised) != 2 {
		t.Errorf("raised %d alerts with consecutive failures, want 2", len(raised))
	}
}

func TestAlertManager_NoDedupAcrossEvaluations(t *testing.T) {
	a := NewAlertManager(DefaultThresholds())
	m := callMetricsWithFailures(20, 3)

	for i := 0; i < 4; i++ {
		a.CheckCalls("binance", m)
	}

	active := a.Active(10 * time.Minute)
	if len(active) != 4 {
		t.Fatalf("active alerts = %d, want 4 (one per evaluation)", len(active))
	}
	seen := make(map[string]bool)
	for _, al := range active {
		seen[al.ID.String()] = true
	}
	if len(seen) != 4 {
		t.Errorf("distinct alert IDs = %d, want 4", len(seen))
	}
}

func TestSystem_DashboardData(t *testing.T) {
	s := NewSystem()

	tr := s.Tracker("binance")
	for i := 0; i < 17; i++ {
		tr.Record(CallRecord{Success: true})
	}
	for i := 0; i < 3; i++ {
		tr.Record(CallRecord{Success: false, ErrClass: ErrClassTimeout})
	}
	s.Writes().Record(WriteRecord{Success: true, PopulatedFields: []string{"close"}})

	d := s.DashboardData()

	m, ok := d.Calls["binance"]
	if !ok {
		t.Fatal("dashboard missing binance metrics")
	}
	if m.TotalCalls != 20 || m.ErrorCount != 3 {
		t.Errorf("binance metrics = %d/%d, want 20/3", m.TotalCalls, m.ErrorCount)
	}
	if d.Writes.TotalWrites != 1 {
		t.Errorf("total writes = %d, want 1", d.Writes.TotalWrites)
	}
	if len(d.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1 (15%% error rate)", len(d.Alerts))
	}

	// A second refresh re-evaluates and appends another alert.
	d = s.DashboardData()
	if len(d.Alerts) != 2 {
		t.Errorf("alerts after second refresh = %d, want 2", len(d.Alerts))
	}
}

func TestSystem_TrackerReuse(t *testing.T) {
	s := NewSystem()
	if s.Tracker("a") != s.Tracker("a") {
		t.Error("same service returned different trackers")
	}
	if s.Tracker("a") == s.Tracker("b") {
		t.Error("different services shared a tracker")
	}
}

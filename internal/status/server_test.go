package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickgao/crypto-factory/internal/keyring"
	"github.com/rickgao/crypto-factory/internal/monitor"
)

func testServer() (*Server, *Board) {
	board := NewBoard()
	return NewServer(0, board, monitor.NewSystem(), nil), board
}

func TestHealth_FreshSnapshot(t *testing.T) {
	srv, board := testServer()
	board.Set(Snapshot{UpdatedAt: time.Now(), DBConnected: true})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" {
		t.Errorf("status = %v, want ok", payload["status"])
	}
}

func TestHealth_StaleSnapshotDegraded(t *testing.T) {
	srv, board := testServer()
	board.Set(Snapshot{UpdatedAt: time.Now().Add(-time.Minute), DBConnected: true})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealth_NeverPushedDegraded(t *testing.T) {
	srv, _ := testServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before first push", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, board := testServer()
	board.Set(Snapshot{
		UpdatedAt: time.Now(),
		Symbol:    "BTCUSDT",
		Keyring: map[string]keyring.ServiceStatus{
			"COINALYZE": {TotalKeys: 3, Window: "day"},
		},
		Collectors: []CollectorStatus{
			{Name: "binance_ws", State: "streaming", Fields: 12},
		},
		DBConnected: true,
		DBRows:      12345,
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Symbol != "BTCUSDT" || snap.DBRows != 12345 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Keyring["COINALYZE"].TotalKeys != 3 {
		t.Errorf("keyring status lost: %+v", snap.Keyring)
	}
	if len(snap.Collectors) != 1 || snap.Collectors[0].State != "streaming" {
		t.Errorf("collectors = %+v", snap.Collectors)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	board := NewBoard()
	system := monitor.NewSystem()
	system.Tracker("deribit").Record(monitor.CallRecord{Success: true})
	srv := NewServer(0, board, system, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var data monitor.DashboardData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Calls["deribit"].TotalCalls != 1 {
		t.Errorf("dashboard calls = %+v", data.Calls)
	}
}

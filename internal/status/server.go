package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/crypto-factory/internal/monitor"
)

// staleAfter is how old the board snapshot may be before /health
// reports the pipeline as degraded.
const staleAfter = 30 * time.Second

// Server serves the status surface.
type Server struct {
	srv    *http.Server
	board  *Board
	system *monitor.System
	logger *slog.Logger
}

// NewServer creates the status HTTP server.
func NewServer(port int, board *Board, system *monitor.System, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		board:  board,
		system: system,
		logger: logger,
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	return mux
}

// Start begins serving. Listen errors after startup are logged, not
// returned; the factory keeps collecting without its status surface.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "err", err)
		}
	}()

	s.logger.Info("status server started", "addr", s.srv.Addr)
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.board.Get()

	healthy := s.board != nil &&
		!snap.UpdatedAt.IsZero() &&
		time.Since(snap.UpdatedAt) < staleAfter &&
		snap.DBConnected

	payload := map[string]any{
		"status":       "ok",
		"updated_at":   snap.UpdatedAt,
		"db_connected": snap.DBConnected,
	}
	code := http.StatusOK
	if !healthy {
		payload["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Get())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.system.DashboardData())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("encode status response", "err", err)
	}
}

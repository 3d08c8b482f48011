// Package api provides a lightweight read-only HTTP API over the assembled
// schedule and job registries, for dashboards and scripted consumers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/antigravity-dev/foreman/internal/config"
	"github.com/antigravity-dev/foreman/internal/gantt"
	"github.com/antigravity-dev/foreman/internal/mount"
)

// ScheduleSource produces the current schedule rows on demand.
type ScheduleSource interface {
	Reconcile(ctx context.Context) ([]gantt.Row, error)
}

// Server is the local HTTP API server.
type Server struct {
	cfg            *config.Config
	schedule       ScheduleSource
	jobs           *mount.Registry
	logger         *slog.Logger
	startTime      time.Time
	httpServer     *http.Server
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, schedule ScheduleSource, jobs *mount.Registry, logger *slog.Logger) (*Server, error) {
	authMiddleware, err := NewAuthMiddleware(&cfg.Serve, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth middleware: %w", err)
	}

	return &Server{
		cfg:            cfg,
		schedule:       schedule,
		jobs:           jobs,
		logger:         logger,
		startTime:      time.Now(),
		authMiddleware: authMiddleware,
	}, nil
}

// Close closes the server and cleans up resources.
func (s *Server) Close() error {
	if s.authMiddleware != nil {
		return s.authMiddleware.Close()
	}
	return nil
}

// Handler builds the route table. Split out of Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.authMiddleware.RequireAuth(s.handleStatus))
	mux.HandleFunc("/schedule", s.authMiddleware.RequireAuth(s.handleSchedule))
	mux.HandleFunc("/jobs", s.authMiddleware.RequireAuth(s.handleJobs))
	return mux
}

// Start begins listening on the configured bind address. Blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.Serve.Bind,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "bind", s.cfg.Serve.Bind)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}

// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"backend":      s.cfg.Backend.BaseURL,
		"classic_jobs": s.jobs.Count(mount.Classic),
		"quantum_jobs": s.jobs.Count(mount.Quantum),
	})
}

// GET /schedule — rows are assembled fresh on every request.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	rows, err := s.schedule.Reconcile(r.Context())
	if err != nil {
		s.logger.Error("schedule reconcile failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to assemble schedule")
		return
	}
	if rows == nil {
		rows = []gantt.Row{}
	}
	writeJSON(w, map[string]any{
		"rows":  rows,
		"count": len(rows),
	})
}

// GET /jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	classic, err := s.jobs.Payload(mount.Classic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode classic jobs")
		return
	}
	quantum, err := s.jobs.Payload(mount.Quantum)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode quantum jobs")
		return
	}
	writeJSON(w, map[string]any{
		"classic": json.RawMessage(classic),
		"quantum": json.RawMessage(quantum),
	})
}

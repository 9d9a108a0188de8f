// Package admin exposes the operational HTTP surface: triggering a
// collection run, inspecting the latest run, and a health probe.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/averyc/sentinel/internal/collector"
	"github.com/averyc/sentinel/internal/store"
)

const defaultHoursBack = 24

// Runner triggers a collection pass and reports what happened.
type Runner interface {
	Collect(ctx context.Context, hoursBack int) collector.Summary
}

// StatusStore is the slice of the store the status endpoint needs.
type StatusStore interface {
	LatestAPILog() (*store.APILog, error)
	CountIncidentsSince(since time.Time) (int, error)
}

// Server wires the admin endpoints onto a chi router.
type Server struct {
	runner Runner
	store  StatusStore
	token  string
	logger *log.Logger
	active bool
}

// New builds an admin server. token may be empty, in which case the
// admin endpoints are open (healthz is always open).
func New(runner Runner, st StatusStore, token string, active bool, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, token: token, logger: logger, active: active}
}

// Router returns the HTTP handler for the admin surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/admin/collect-news", s.handleCollect)
		r.Get("/admin/collection-status", s.handleStatus)
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	hours := defaultHoursBack
	if raw := r.URL.Query().Get("hours_back"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours_back must be a positive integer"})
			return
		}
		hours = n
	}

	s.logger.Info("manual collection triggered", "hours_back", hours)
	summary := s.runner.Collect(r.Context(), hours)

	code := http.StatusOK
	if !summary.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, summary)
}

// statusResponse is what collection-status returns.
type statusResponse struct {
	CollectionActive  bool          `json:"collection_active"`
	LastRun           *store.APILog `json:"last_run"`
	IncidentsLastHour int           `json:"incidents_last_hour"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, err := s.store.LatestAPILog()
	if err != nil {
		s.logger.Error("status query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status query failed"})
		return
	}
	recent, err := s.store.CountIncidentsSince(time.Now().UTC().Add(-time.Hour))
	if err != nil {
		s.logger.Error("status query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status query failed"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		CollectionActive:  s.active,
		LastRun:           last,
		IncidentsLastHour: recent,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

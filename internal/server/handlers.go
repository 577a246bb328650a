package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/seolens/seolens/internal/core/ratelimit"
	"github.com/seolens/seolens/internal/observability"
)

type statusResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Store      string                     `json:"store"`
	RateLimits map[string]ratelimit.Usage `json:"rate_limits,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:    "ok",
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Store:     "ok",
	}

	if s.store == nil || s.store.DB == nil {
		resp.Status = "degraded"
		resp.Store = "unavailable"
	} else if err := s.store.DB.PingContext(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = "unreachable"
	}

	if s.limiter != nil {
		resp.RateLimits = s.limiter.EndpointUsage()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "store is not available")
		return
	}

	records, err := s.store.ListMetrics(r.Context(), domain, limit)
	if err != nil {
		observability.ServerLogger.Error("list metrics failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list metrics")
		return
	}
	if len(records) == 0 {
		writeError(w, r, http.StatusNotFound, "no metrics for domain")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"domain":  domain,
		"history": records,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "store is not available")
		return
	}

	domain := r.URL.Query().Get("domain")
	runs, err := s.store.ListRuns(r.Context(), domain, 50)
	if err != nil {
		observability.ServerLogger.Error("list runs failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{
		Error:     msg,
		RequestID: GetRequestID(r.Context()),
	})
}

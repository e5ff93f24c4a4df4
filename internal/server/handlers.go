package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/karthiknish/profici-comp-sub000/internal/core"
	"github.com/karthiknish/profici-comp-sub000/internal/llm"
	"github.com/karthiknish/profici-comp-sub000/internal/persistence"
	"github.com/karthiknish/profici-comp-sub000/internal/pipeline"
)

// maxPayloadBytes caps the analyze request body
const maxPayloadBytes = 10 << 20

// HealthResponse is the /health body
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ReportListResponse is the GET /api/reports body
type ReportListResponse struct {
	Reports []persistence.ReportSummary `json:"reports"`
	Count   int                         `json:"count"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if s.db == nil {
		checks["database"] = "not_configured"
		s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
		return
	}

	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "error"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["database"] = "ok"
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// handleAnalyze handles POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload core.AnalysisPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrInvalidPayload):
			s.respondError(w, http.StatusBadRequest, "Invalid analysis request", err.Error())
		case llm.IsConfigError(err):
			s.log.Error().Err(err).Msg("Model provider is misconfigured")
			s.respondError(w, http.StatusInternalServerError, "AI provider configuration error", err.Error())
		case errors.Is(err, pipeline.ErrSerialization):
			s.log.Error().Err(err).Msg("Report could not be serialized")
			s.respondError(w, http.StatusInternalServerError, "Failed to serialize report", err.Error())
		default:
			s.log.Error().Err(err).Msg("Analysis failed")
			s.respondError(w, http.StatusInternalServerError, "Analysis failed", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Body); err != nil {
		s.log.Error().Err(err).Msg("Failed to write report response")
	}
}

// handleGetReport handles GET /api/reports/{id}
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Report storage is not configured", "")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Report ID is required", "")
		return
	}

	report, err := s.reports.Get(r.Context(), id)
	if errors.Is(err, persistence.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Report not found", "")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("Failed to load report")
		s.respondError(w, http.StatusInternalServerError, "Failed to load report", "")
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}

// handleListReports handles GET /api/reports?domain=&limit=
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Report storage is not configured", "")
		return
	}

	domain := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("domain")))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit", raw)
			return
		}
		limit = n
	}

	reports, err := s.reports.ListByDomain(r.Context(), domain, limit)
	if err != nil {
		s.log.Error().Err(err).Str("domain", domain).Msg("Failed to list reports")
		s.respondError(w, http.StatusInternalServerError, "Failed to list reports", "")
		return
	}

	s.respondJSON(w, http.StatusOK, ReportListResponse{Reports: reports, Count: len(reports)})
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message, details string) {
	s.respondJSON(w, status, ErrorResponse{Error: message, Details: details})
}

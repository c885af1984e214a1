package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotationlab/rotation-data/internal/api"
	"github.com/rotationlab/rotation-data/internal/rotation"
	"github.com/rotationlab/rotation-data/internal/version"
)

const (
	defaultDays     = 30
	maxDays         = 365
	defaultTopLimit = 10
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.pipeline.ListCategories(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": cats})
}

func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.pipeline.CategoryDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": detail})
}

func (s *Server) handleCategoryHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := s.queryDays(w, r)
	if !ok {
		return
	}

	h, err := s.pipeline.CategoryHistory(r.Context(), r.PathValue("id"), days)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleCompareCategories(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("category_ids")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "category_ids is required")
		return
	}

	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		s.writeError(w, http.StatusBadRequest, "category_ids is required")
		return
	}

	days, ok := s.queryDays(w, r)
	if !ok {
		return
	}

	out, err := s.pipeline.CompareCategories(r.Context(), ids, days)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleTopTokens(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	top, err := s.pipeline.TopTokens(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": top})
}

func (s *Server) handleTokensHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenIDs []int64 `json:"token_ids"`
		Days     int     `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.TokenIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "token_ids is required")
		return
	}
	if req.Days <= 0 {
		req.Days = defaultDays
	}
	if req.Days > maxDays {
		s.writeError(w, http.StatusBadRequest, "days must be at most 365")
		return
	}

	histories, err := s.pipeline.TokensHistory(r.Context(), req.TokenIDs, req.Days)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": histories})
}

func (s *Server) handleRotationAnalysis(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pipeline.RotationAnalysis(r.Context())
	if err != nil {
		if errors.Is(err, rotation.ErrNoAnalysis) {
			s.writeJSON(w, http.StatusOK, map[string]any{"message": "No analysis data available"})
			return
		}
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, code, map[string]any{
		"status":  status,
		"version": version.String(),
	})
}

// queryDays parses the days query parameter, writing a 400 on bad input.
func (s *Server) queryDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		s.writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
		return 0, false
	}
	return days, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorBody{Detail: detail})
}

// writeErr maps pipeline errors onto the produced surface: not-found stays
// 404, provider failures keep their upstream status, everything else is a
// 500.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var apiErr *api.APIError

	switch {
	case errors.Is(err, rotation.ErrCategoryNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case api.IsAuth(err):
		errors.As(err, &apiErr)
		s.writeError(w, http.StatusUnauthorized, apiErr.Message)
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		s.writeError(w, status, apiErr.Message)
	case errors.Is(err, api.ErrMalformedPayload):
		s.writeError(w, http.StatusBadGateway, "upstream payload malformed")
	default:
		s.logger.Error("request failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

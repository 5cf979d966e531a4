package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/snakebridge/internal/bridge"
	"github.com/seantiz/snakebridge/internal/model"
	"github.com/seantiz/snakebridge/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// listCallsResponse wraps the paginated list response.
type listCallsResponse struct {
	Calls  []*model.Call `json:"calls"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Total         int            `json:"total"`
	ByKind        map[string]int `json:"by_kind"`
	ByStatus      map[string]int `json:"by_status"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

type bridgeStatusResponse struct {
	Kinds []bridge.KindStatus `json:"kinds"`
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)
	kind := r.URL.Query().Get("kind")

	if kind != "" && !model.Kind(kind).Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown kind "+strconv.Quote(kind))
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	calls, total, err := s.store.ListCalls(r.Context(), kind, limit, offset)
	if err != nil {
		s.logger.Error("list calls", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}

	if calls == nil {
		calls = []*model.Call{}
	}

	s.writeJSON(w, http.StatusOK, listCallsResponse{
		Calls:  calls,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.store.GetCall(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "call not found")
		return
	}
	if err != nil {
		s.logger.Error("get call", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get call")
		return
	}

	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetCallStats(r.Context())
	if err != nil {
		s.logger.Error("get call stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Total:         stats.Total,
		ByKind:        stats.CountByKind,
		ByStatus:      stats.CountByStatus,
		AvgDurationMS: stats.AvgDurationMS,
	})
}

// handleBridgeStatus reports listener counts and the in-flight call per kind.
func (s *Server) handleBridgeStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, bridgeStatusResponse{Kinds: s.bridge.Status()})
}

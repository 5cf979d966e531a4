package api

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	Engine string `json:"engine"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Engine: "unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Engine: "ready"})
}

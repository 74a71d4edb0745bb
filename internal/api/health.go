package api

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
	// Degraded lists required tools that cannot be found.
	Degraded []string `json:"degraded,omitempty"`
}

// handleHealthz always answers 200; missing tools only mark the service
// degraded since jobs that need them fail on their own.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	for _, t := range s.toolStatus() {
		if !t.Available && !t.Optional {
			resp.Degraded = append(resp.Degraded, t.Name)
		}
	}
	if len(resp.Degraded) > 0 {
		resp.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"net/http"

	"github.com/seantiz/podfree/internal/model"
)

// statsResponse is the JSON response for GET /v1/stats.
type statsResponse struct {
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"by_status"`
	ByType        map[string]int `json:"by_type"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// jobStats aggregates job counts. The average covers finished jobs only,
// measured from creation to the last update.
func jobStats(list map[string]model.Job) statsResponse {
	resp := statsResponse{
		ByStatus: map[string]int{},
		ByType:   map[string]int{},
	}
	var total float64
	var finished int
	for _, j := range list {
		resp.Total++
		resp.ByStatus[j.Status]++
		resp.ByType[j.Type]++
		if model.IsTerminal(j.Status) {
			total += float64(j.UpdatedAt.Sub(j.CreatedAt).Milliseconds())
			finished++
		}
	}
	if finished > 0 {
		resp.AvgDurationMS = total / float64(finished)
	}
	return resp
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, jobStats(s.jobs.List()))
}

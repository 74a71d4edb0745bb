package api

import (
	"net/http"

	"github.com/seantiz/podfree/internal/process"
)

// toolStatus checks the engine's external tools and records the result in
// the tool availability gauge.
func (s *Server) toolStatus() []process.Status {
	statuses := process.CheckBinaries(s.engine.Requirements())
	for _, st := range statuses {
		v := 0.0
		if st.Available {
			v = 1
		}
		toolAvailable.WithLabelValues(st.Name).Set(v)
	}
	return statuses
}

type listToolsResponse struct {
	Tools []process.Status `json:"tools"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, listToolsResponse{Tools: s.toolStatus()})
}

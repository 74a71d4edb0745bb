package api

import (
	"errors"
	"net/http"

	"github.com/seantiz/podfree/internal/engine"
)

// startJobResponse is returned by endpoints that start a background job.
type startJobResponse struct {
	JobID  *string `json:"job_id"`
	Status string  `json:"status,omitempty"`
}

type proxyRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type scriptRequest struct {
	Script string `json:"script"`
}

// handleStartProxy starts a proxy encode. The job runs in the background;
// poll GET /v1/jobs/{id} or stream its logs to follow it.
func (s *Server) handleStartProxy(w http.ResponseWriter, r *http.Request) {
	var req proxyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Source == "" || req.Target == "" {
		s.writeError(w, http.StatusBadRequest, "source and target required")
		return
	}

	id, err := s.engine.StartProxy(s.workspace.Root(), req.Source, req.Target)
	if errors.Is(err, engine.ErrTargetExists) {
		s.writeJSON(w, http.StatusOK, startJobResponse{Status: "exists"})
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.logger.Info("proxy job started", "job_id", id, "source", req.Source, "target", req.Target)
	s.writeJSON(w, http.StatusAccepted, startJobResponse{JobID: &id})
}

// handleStartScript runs a helper script with the workspace as its working
// directory.
func (s *Server) handleStartScript(w http.ResponseWriter, r *http.Request) {
	var req scriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Script == "" {
		s.writeError(w, http.StatusBadRequest, "script required")
		return
	}

	id, err := s.engine.StartScript(req.Script, s.workspace.Root())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.logger.Info("script job started", "job_id", id, "script", req.Script)
	s.writeJSON(w, http.StatusAccepted, startJobResponse{JobID: &id})
}

// listScriptsResponse is the JSON response for GET /v1/scripts.
type listScriptsResponse struct {
	Scripts []engine.Script `json:"scripts"`
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	summary, err := s.workspace.Summary()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	scripts, err := s.engine.ListScripts(&summary)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if scripts == nil {
		scripts = []engine.Script{}
	}
	s.writeJSON(w, http.StatusOK, listScriptsResponse{Scripts: scripts})
}

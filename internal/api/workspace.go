package api

import (
	"context"
	"net/http"

	"github.com/seantiz/podfree/internal/engine"
	"github.com/seantiz/podfree/internal/workspace"
)

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	var (
		summary workspace.Summary
		err     error
	)
	if r.URL.Query().Get("refresh") != "" {
		summary, err = s.workspace.Refresh()
	} else {
		summary, err = s.workspace.Summary()
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := s.workspace.ListDir(r.URL.Query().Get("dir"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listing)
}

type autoProcessRequest struct {
	Video string `json:"video"`
}

type autoProcessResponse struct {
	Status string `json:"status"`
	engine.AutoResult
}

// handleAutoProcess prepares a newly added video. The jobs it starts run in
// the background; transcription follows audio extraction.
func (s *Server) handleAutoProcess(w http.ResponseWriter, r *http.Request) {
	var req autoProcessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Video == "" {
		s.writeError(w, http.StatusBadRequest, "video required")
		return
	}
	if !workspace.IsVideo(req.Video) {
		s.writeJSON(w, http.StatusOK, autoProcessResponse{Status: "skipped"})
		return
	}

	// Background jobs must outlive the request.
	res, err := s.engine.AutoProcess(context.WithoutCancel(r.Context()), s.workspace, req.Video)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, autoProcessResponse{Status: "started", AutoResult: res})
}

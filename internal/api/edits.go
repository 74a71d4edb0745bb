package api

import (
	"errors"
	"net/http"

	"github.com/seantiz/podfree/internal/store"
)

type saveEditsRequest struct {
	ProjectName    string `json:"projectName"`
	TranscriptFile string `json:"transcriptFile"`
	DeletedIndices []int  `json:"deletedIndices"`
}

type saveEditsResponse struct {
	Status       string `json:"status"`
	DeletedCount int    `json:"deletedCount"`
}

type loadEditsResponse struct {
	DeletedIndices []int `json:"deletedIndices"`
}

type listEditsResponse struct {
	Edits []store.TranscriptEdits `json:"edits"`
}

func (s *Server) handleSaveTranscriptEdits(w http.ResponseWriter, r *http.Request) {
	var req saveEditsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProjectName == "" {
		s.writeError(w, http.StatusBadRequest, "projectName required")
		return
	}
	if req.TranscriptFile == "" {
		s.writeError(w, http.StatusBadRequest, "transcriptFile required")
		return
	}
	if req.DeletedIndices == nil {
		req.DeletedIndices = []int{}
	}

	if err := s.store.SaveTranscriptEdits(r.Context(), req.ProjectName, req.TranscriptFile, req.DeletedIndices); err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saveEditsResponse{Status: "saved", DeletedCount: len(req.DeletedIndices)})
}

// handleLoadTranscriptEdits returns the saved deletions for one transcript,
// or every saved transcript of a project when file is omitted.
func (s *Server) handleLoadTranscriptEdits(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	file := r.URL.Query().Get("file")
	if project == "" {
		s.writeError(w, http.StatusBadRequest, "project required")
		return
	}

	if file == "" {
		edits, err := s.store.ListTranscriptEdits(r.Context(), project)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		if edits == nil {
			edits = []store.TranscriptEdits{}
		}
		s.writeJSON(w, http.StatusOK, listEditsResponse{Edits: edits})
		return
	}

	deleted, err := s.store.LoadTranscriptEdits(r.Context(), project, file)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loadEditsResponse{DeletedIndices: deleted})
}

func (s *Server) handleDeleteTranscriptEdits(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	file := r.URL.Query().Get("file")
	if project == "" || file == "" {
		s.writeError(w, http.StatusBadRequest, "project and file required")
		return
	}

	err := s.store.DeleteTranscriptEdits(r.Context(), project, file)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "transcript edits not found")
		return
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

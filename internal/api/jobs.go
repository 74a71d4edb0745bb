package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/podfree/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// listJobsResponse wraps the job list, newest first.
type listJobsResponse struct {
	Jobs  []model.Job `json:"jobs"`
	Total int         `json:"total"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	status := r.URL.Query().Get("status")
	jobType := r.URL.Query().Get("type")

	all := s.jobs.List()
	list := make([]model.Job, 0, len(all))
	for _, j := range all {
		if status != "" && j.Status != status {
			continue
		}
		if jobType != "" && j.Type != jobType {
			continue
		}
		list = append(list, j)
	}
	slices.SortFunc(list, func(a, b model.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		// ULIDs sort by creation time.
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})

	total := len(list)
	if len(list) > limit {
		list = list[:limit]
	}
	s.writeJSON(w, http.StatusOK, listJobsResponse{Jobs: list, Total: total})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.jobs.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

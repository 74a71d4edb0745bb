package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/seantiz/podfree/internal/engine"
	"github.com/seantiz/podfree/internal/sandbox"
	"github.com/seantiz/podfree/internal/store"
	"github.com/seantiz/podfree/internal/workspace"
)

const maxBodySize = 16 << 20 // edit lists for long episodes run to megabytes

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps a synchronous validation error to a status code.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sandbox.ErrPathEscape),
		errors.Is(err, engine.ErrEmptySegments),
		errors.Is(err, engine.ErrInvalidKind),
		errors.Is(err, workspace.ErrNotDirectory),
		errors.Is(err, store.ErrInvalidEdits):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrSourceNotFound),
		errors.Is(err, engine.ErrScriptNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, fs.ErrNotExist):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

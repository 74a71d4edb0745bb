package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/seantiz/podfree/internal/engine"
	"github.com/seantiz/podfree/internal/model"
)

const exportSchemaJSON = `{
  "type": "object",
  "required": ["sourceFile", "editedWords"],
  "properties": {
    "sourceFile": {"type": "string", "minLength": 1},
    "output": {"type": "string"},
    "editedWords": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {
          "start": {"type": "number"},
          "end": {"type": "number"},
          "deleted": {"type": "boolean"}
        }
      }
    }
  }
}`

var exportSchema = mustCompileSchema("export.json", exportSchemaJSON)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader([]byte(src))); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

type exportRequest struct {
	SourceFile  string             `json:"sourceFile"`
	EditedWords []model.EditedWord `json:"editedWords"`
	Output      string             `json:"output"`
}

type exportResponse struct {
	Status     string `json:"status"`
	JobID      string `json:"job_id"`
	OutputFile string `json:"output_file"`
}

// decodeExport validates the body against the export schema before decoding
// it into a request.
func decodeExport(body []byte) (exportRequest, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return exportRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := exportSchema.Validate(raw); err != nil {
		return exportRequest{}, fmt.Errorf("request does not match schema: %w", err)
	}
	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return exportRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return req, nil
}

func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !model.ValidKind(kind) {
		s.writeError(w, http.StatusBadRequest, "kind must be audio or video")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	req, err := decodeExport(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.StartExport(engine.ExportRequest{
		Workspace: s.workspace.Root(),
		Source:    req.SourceFile,
		Words:     req.EditedWords,
		Output:    req.Output,
		Kind:      kind,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.logger.Info("export job started", "job_id", res.JobID, "kind", kind, "output", res.OutputFile)
	s.writeJSON(w, http.StatusAccepted, exportResponse{
		Status:     "started",
		JobID:      res.JobID,
		OutputFile: res.OutputFile,
	})
}

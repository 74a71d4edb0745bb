package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/podfree/internal/model"
)

// eventStream writes server-sent events and flushes after each one when the
// writer supports it.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) *eventStream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	f, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: f}
}

func (s *eventStream) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// line sends one job log line. Embedded newlines become extra data fields
// of the same event.
func (s *eventStream) line(text string) error {
	var b strings.Builder
	for part := range strings.SplitSeq(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(part)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := fmt.Fprint(s.w, b.String())
	return err
}

// event sends a named event with a single data field.
func (s *eventStream) event(name, data string) error {
	_, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// handleStreamLogs tails a running job's log as SSE. A finished job gets an
// empty 200; its logs are in GET /v1/jobs/{id}.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok := s.jobs.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	stream := newEventStream(w)
	if model.IsTerminal(job.Status) {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Exports can run for minutes; the server write timeout must not cut
	// the stream.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("clear write deadline", "job_id", id, "error", err)
	}

	// Subscribe returns the lines so far and the live feed under one lock.
	backlog, feed, cancel, _ := s.jobs.Subscribe(id)
	defer cancel()

	w.WriteHeader(http.StatusOK)
	for _, l := range backlog {
		if stream.line(l) != nil {
			return
		}
	}
	stream.flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case l, open := <-feed:
			if !open {
				_ = stream.event("done", "stream complete")
				stream.flush()
				return
			}
			if stream.line(l) != nil {
				return
			}
			stream.flush()
		}
	}
}

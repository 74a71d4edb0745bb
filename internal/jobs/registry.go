package jobs

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/seantiz/podfree/internal/model"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// Update is a partial mutation of a job. Nil fields are left unchanged.
type Update struct {
	Status   *string
	Progress *float64
	Message  *string
	LogLine  *string
}

type entry struct {
	job  model.Job
	done chan struct{}
}

// Registry is a mutex-guarded store of job records. All methods are safe for
// concurrent use and never block on anything but the in-memory store.
type Registry struct {
	mu     sync.Mutex
	jobs   map[string]*entry
	broker *LogBroker
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		jobs:   make(map[string]*entry),
		broker: NewLogBroker(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new pending job and returns its id.
func (r *Registry) Create(jobType, label string, payload model.Payload) string {
	id := model.NewID()
	now := r.now()

	r.mu.Lock()
	r.jobs[id] = &entry{
		job: model.Job{
			ID:        id,
			Type:      jobType,
			Label:     label,
			Status:    model.StatusPending,
			Message:   "queued",
			Logs:      []string{},
			Payload:   payload.Clone(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		done: make(chan struct{}),
	}
	r.mu.Unlock()

	jobsCreated.WithLabelValues(jobType).Inc()
	jobsActive.Inc()
	r.logger.Info("job created", "job_id", id, "type", jobType, "label", label)
	return id
}

// Update applies u to the job with the given id. Unknown ids are ignored.
// Progress is clamped into [0, 100]. Status changes that the state machine
// does not allow, including any change out of a terminal status, are dropped
// while the remaining fields still apply.
func (r *Registry) Update(id string, u Update) {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	var (
		from, to  string
		rejected  bool
		finished  bool
		jobType   = e.job.Type
		createdAt = e.job.CreatedAt
	)
	if u.Status != nil && *u.Status != e.job.Status {
		from, to = e.job.Status, *u.Status
		if model.ValidTransition(from, to) {
			e.job.Status = to
			finished = model.IsTerminal(to)
		} else {
			rejected = true
		}
	}
	if u.Progress != nil && !math.IsNaN(*u.Progress) {
		e.job.Progress = clamp(*u.Progress)
	}
	if u.Message != nil {
		e.job.Message = *u.Message
	}
	if u.LogLine != nil {
		e.job.Logs = append(e.job.Logs, *u.LogLine)
		r.broker.Publish(id, *u.LogLine)
	}
	e.job.UpdatedAt = r.now()
	if finished {
		close(e.done)
		r.broker.Close(id)
	}
	r.mu.Unlock()

	switch {
	case rejected:
		r.logger.Warn("job status change ignored", "job_id", id, "from", from, "to", to)
	case to != "":
		r.logger.Info("job status", "job_id", id, "status", to)
	}
	if u.Message != nil {
		r.logger.Debug("job message", "job_id", id, "message", *u.Message)
	}
	if finished {
		jobsActive.Dec()
		jobsFinished.WithLabelValues(jobType, to).Inc()
		jobDuration.WithLabelValues(jobType).Observe(r.now().Sub(createdAt).Seconds())
	}
}

// Get returns a snapshot of the job.
func (r *Registry) Get(id string) (model.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return e.job.Clone(), true
}

// List returns snapshots of every job keyed by id.
func (r *Registry) List() map[string]model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]model.Job, len(r.jobs))
	for id, e := range r.jobs {
		out[id] = e.job.Clone()
	}
	return out
}

// Done returns a channel closed when the job reaches a terminal status, or
// nil when the id is unknown.
func (r *Registry) Done(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[id]
	if !ok {
		return nil
	}
	return e.done
}

// Wait blocks until the job is terminal or ctx ends, then returns its
// snapshot.
func (r *Registry) Wait(ctx context.Context, id string) (model.Job, error) {
	done := r.Done(id)
	if done == nil {
		return model.Job{}, ErrNotFound
	}
	select {
	case <-done:
	case <-ctx.Done():
		return model.Job{}, ctx.Err()
	}
	job, _ := r.Get(id)
	return job, nil
}

// Subscribe returns the job's log lines so far together with a channel of
// lines appended afterwards. The channel closes when the job finishes. ok is
// false for unknown ids.
func (r *Registry) Subscribe(id string) (backlog []string, lines <-chan string, unsubscribe func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, found := r.jobs[id]
	if !found {
		return nil, nil, func() {}, false
	}
	backlog = append([]string(nil), e.job.Logs...)
	ch, unsub := r.broker.Subscribe(id)
	return backlog, ch, unsub, true
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

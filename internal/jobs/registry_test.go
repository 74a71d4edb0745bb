package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/seantiz/podfree/internal/jobs"
	"github.com/seantiz/podfree/internal/model"
)

func newTestRegistry(t *testing.T) *jobs.Registry {
	t.Helper()
	return jobs.NewRegistry(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func ptr[T any](v T) *T { return &v }

func TestCreateDefaults(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeProxy, "Create proxy.mp4", model.Payload{
		Proxy: &model.ProxyPayload{Source: "a.mp4", Target: "proxy.mp4"},
	})

	job, ok := r.Get(id)
	if !ok {
		t.Fatal("Get: job not found")
	}
	if job.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", job.Status)
	}
	if job.Progress != 0 {
		t.Errorf("Progress = %v, want 0", job.Progress)
	}
	if job.Message != "queued" {
		t.Errorf("Message = %q, want queued", job.Message)
	}
	if len(job.Logs) != 0 {
		t.Errorf("Logs = %v, want empty", job.Logs)
	}
	if job.Type != model.TypeProxy || job.Label != "Create proxy.mp4" {
		t.Errorf("Type/Label = %q/%q", job.Type, job.Label)
	}
	if job.Payload.Proxy == nil || job.Payload.Proxy.Target != "proxy.mp4" {
		t.Errorf("Payload = %+v", job.Payload)
	}
	if job.CreatedAt.IsZero() || !job.UpdatedAt.Equal(job.CreatedAt) {
		t.Errorf("timestamps = %v / %v", job.CreatedAt, job.UpdatedAt)
	}
}

func TestCreateUniqueIDs(t *testing.T) {
	r := newTestRegistry(t)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := r.Create(model.TypeScript, "run", model.Payload{})
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	r := newTestRegistry(t)
	r.Update("nonexistent", jobs.Update{Status: ptr(model.StatusRunning), LogLine: ptr("x")})

	if _, ok := r.Get("nonexistent"); ok {
		t.Error("Update created a record for an unknown id")
	}
	if n := len(r.List()); n != 0 {
		t.Errorf("List() has %d jobs, want 0", n)
	}
}

func TestUpdateClampsProgress(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeExport, "export", model.Payload{})

	r.SetProgress(id, 150)
	if job, _ := r.Get(id); job.Progress != 100 {
		t.Errorf("Progress = %v, want 100", job.Progress)
	}
	r.SetProgress(id, -10)
	if job, _ := r.Get(id); job.Progress != 0 {
		t.Errorf("Progress = %v, want 0", job.Progress)
	}
	r.SetProgress(id, 42.5)
	if job, _ := r.Get(id); job.Progress != 42.5 {
		t.Errorf("Progress = %v, want 42.5", job.Progress)
	}
}

func TestUpdatePartialLeavesOtherFields(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})
	r.Start(id, "running")
	r.SetProgress(id, 30)

	r.AppendLog(id, "line 1")
	job, _ := r.Get(id)
	if job.Status != model.StatusRunning || job.Message != "running" || job.Progress != 30 {
		t.Errorf("partial update changed other fields: %+v", job)
	}
}

func TestUpdateAppendsLogs(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})
	r.AppendLog(id, "first")
	r.AppendLog(id, "second")

	job, _ := r.Get(id)
	if len(job.Logs) != 2 || job.Logs[0] != "first" || job.Logs[1] != "second" {
		t.Errorf("Logs = %v, want [first second]", job.Logs)
	}
}

func TestUpdateAdvancesUpdatedAt(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})
	before, _ := r.Get(id)
	time.Sleep(2 * time.Millisecond)
	r.SetMessage(id, "hello")
	after, _ := r.Get(id)
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("UpdatedAt did not advance: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestTerminalStatusDoesNotFlip(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeProxy, "proxy", model.Payload{})
	r.Start(id, "encoding")
	r.Complete(id, "proxy ready")

	r.Fail(id, "late failure")
	r.AppendLog(id, "trailing output")

	job, _ := r.Get(id)
	if job.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want completed", job.Status)
	}
	if job.Message != "late failure" {
		t.Errorf("Message = %q, non-status fields should still apply", job.Message)
	}
	if len(job.Logs) != 1 || job.Logs[0] != "trailing output" {
		t.Errorf("Logs = %v", job.Logs)
	}
}

func TestPendingCanFailDirectly(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeProxy, "proxy", model.Payload{})
	r.Fail(id, "source not found")
	if job, _ := r.Get(id); job.Status != model.StatusFailed {
		t.Errorf("Status = %q, want failed", job.Status)
	}
}

func TestGetReturnsIndependentSnapshot(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})
	r.AppendLog(id, "original")

	snap, _ := r.Get(id)
	snap.Logs[0] = "tampered"
	snap.Status = model.StatusFailed

	again, _ := r.Get(id)
	if again.Logs[0] != "original" || again.Status != model.StatusPending {
		t.Errorf("snapshot mutation leaked into registry: %+v", again)
	}

	listed := r.List()
	j := listed[id]
	j.Logs[0] = "tampered"
	if again, _ := r.Get(id); again.Logs[0] != "original" {
		t.Error("List snapshot shares state with registry")
	}
}

func TestDoneAndWait(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeExport, "export", model.Payload{})

	select {
	case <-r.Done(id):
		t.Fatal("Done closed before terminal status")
	default:
	}

	go func() {
		r.Start(id, "working")
		time.Sleep(10 * time.Millisecond)
		r.Complete(id, "export completed")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := r.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != model.StatusCompleted || job.Progress != 100 {
		t.Errorf("Wait returned %+v", job)
	}
}

func TestWaitUnknownAndCancelled(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Wait(context.Background(), "missing"); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Wait(missing) error = %v, want ErrNotFound", err)
	}
	if r.Done("missing") != nil {
		t.Error("Done(missing) should be nil")
	}

	id := r.Create(model.TypeScript, "run", model.Payload{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Wait(ctx, id); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
}

func TestSubscribeBacklogAndLive(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})
	r.AppendLog(id, "before")

	backlog, lines, unsub, ok := r.Subscribe(id)
	if !ok {
		t.Fatal("Subscribe: not found")
	}
	defer unsub()
	if len(backlog) != 1 || backlog[0] != "before" {
		t.Errorf("backlog = %v", backlog)
	}

	r.Start(id, "running")
	r.AppendLog(id, "after")
	r.Complete(id, "completed")

	var got []string
	for l := range lines {
		got = append(got, l)
	}
	if len(got) != 1 || got[0] != "after" {
		t.Errorf("live lines = %v, want [after]", got)
	}
}

func TestSubscribeUnknown(t *testing.T) {
	r := newTestRegistry(t)
	if _, _, _, ok := r.Subscribe("nope"); ok {
		t.Error("Subscribe(nope) ok = true")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	r := newTestRegistry(t)
	id := r.Create(model.TypeScript, "run", model.Payload{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.AppendLog(id, "line")
				r.SetProgress(id, float64(j))
				_, _ = r.Get(id)
				_ = r.List()
			}
		}()
	}
	wg.Wait()

	job, _ := r.Get(id)
	if len(job.Logs) != 20*50 {
		t.Errorf("Logs = %d lines, want %d", len(job.Logs), 20*50)
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/seantiz/podfree/internal/jobs"
	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/process"
)

var (
	// ErrMissingBinary is returned when ffmpeg, ffprobe or an interpreter
	// cannot be executed.
	ErrMissingBinary = process.ErrMissingBinary
	// ErrSourceNotFound is returned when the input media does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrEmptySegments is returned when an edit keeps nothing.
	ErrEmptySegments = errors.New("no segments to export")
	// ErrTargetExists is returned when a proxy target is already present.
	ErrTargetExists = errors.New("target already exists")
	// ErrScriptNotFound is returned when a script path is not a regular file.
	ErrScriptNotFound = errors.New("script not found")
	// ErrInvalidKind is returned for an export kind other than audio or video.
	ErrInvalidKind = errors.New("invalid export kind")
)

// Config names the external tools the engine runs.
type Config struct {
	FFmpeg     string
	FFprobe    string
	Python     string
	ScriptsDir string
	// LockDir holds the per-output export locks. Defaults to
	// $TMPDIR/podfree-locks.
	LockDir string
}

func (c Config) withDefaults() Config {
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.FFprobe == "" {
		c.FFprobe = "ffprobe"
	}
	if c.Python == "" {
		c.Python = "python3"
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(os.TempDir(), "podfree-locks")
	}
	return c
}

// FinishFunc is called with the terminal snapshot of every job the engine
// ran.
type FinishFunc func(job model.Job)

// Engine orchestrates asynchronous media jobs.
type Engine struct {
	jobs     *jobs.Registry
	cfg      Config
	logger   *slog.Logger
	wg       sync.WaitGroup
	onFinish FinishFunc
}

// New creates an engine that records its jobs in reg.
func New(reg *jobs.Registry, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		jobs:   reg,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// OnFinish installs fn as the completion hook. It must be called before any
// job is started.
func (e *Engine) OnFinish(fn FinishFunc) {
	e.onFinish = fn
}

// Jobs returns the registry the engine records into.
func (e *Engine) Jobs() *jobs.Registry {
	return e.jobs
}

// Config returns the effective tool configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Wait blocks until all in-flight job goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Requirements lists the external tools the engine depends on.
func (e *Engine) Requirements() []process.Requirement {
	return []process.Requirement{
		{Name: "FFmpeg", Command: e.cfg.FFmpeg, Description: "media encoding and concatenation"},
		{Name: "FFprobe", Command: e.cfg.FFprobe, Description: "media duration probing"},
		{Name: "Python", Command: e.cfg.Python, Description: "helper script interpreter", Optional: true},
	}
}

// dispatch runs fn for job id on its own goroutine. A panic fails the job and
// the completion hook always fires.
func (e *Engine) dispatch(id string, fn func(ctx context.Context)) {
	e.wg.Go(func() {
		defer e.finish(id)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("job panicked", "job_id", id, "panic", r)
				e.jobs.Fail(id, fmt.Sprintf("internal error: %v", r))
			}
		}()
		fn(context.Background())
	})
}

// finish guarantees a terminal status and fires the completion hook.
func (e *Engine) finish(id string) {
	job, ok := e.jobs.Get(id)
	if !ok {
		return
	}
	if !model.IsTerminal(job.Status) {
		e.finishFailed(id, "job ended without a result")
		job, _ = e.jobs.Get(id)
	}
	if e.onFinish != nil {
		e.onFinish(job)
	}
}

// finishFailed marks a job as failed with msg.
func (e *Engine) finishFailed(id, msg string) {
	e.logger.Error("job failed", "job_id", id, "message", msg)
	e.jobs.Fail(id, msg)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

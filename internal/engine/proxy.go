package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/seantiz/podfree/internal/ffmpeg"
	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/process"
	"github.com/seantiz/podfree/internal/sandbox"
)

// StartProxy validates source and target inside root, creates a proxy job
// and encodes in the background. It returns ErrTargetExists without creating
// a job when the target is already present.
func (e *Engine) StartProxy(root, source, target string) (string, error) {
	src, err := sandbox.Resolve(root, source)
	if err != nil {
		return "", err
	}
	dst, err := sandbox.Resolve(root, target)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
	}
	if !isFile(src) {
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}
	return e.startProxy("Create "+filepath.Base(dst), src, dst), nil
}

func (e *Engine) startProxy(label, src, dst string) string {
	id := e.jobs.Create(model.TypeProxy, label, model.Payload{
		Proxy: &model.ProxyPayload{Source: src, Target: dst},
	})
	e.dispatch(id, func(ctx context.Context) {
		e.Proxy(ctx, id, src, dst)
	})
	return id
}

// Proxy encodes a low-resolution preview of source into target, feeding the
// ffmpeg progress stream into job jobID. It reports whether the proxy was
// produced.
func (e *Engine) Proxy(ctx context.Context, jobID, source, target string) bool {
	logger := e.logger.With("job_id", jobID)
	logger.Info("proxy started", "source", source, "target", target)

	if !isFile(source) {
		e.finishFailed(jobID, "source not found: "+source)
		return false
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		e.finishFailed(jobID, fmt.Sprintf("create target directory: %v", err))
		return false
	}

	duration, err := ffmpeg.Duration(ctx, e.cfg.FFprobe, source)
	if err != nil {
		logger.Warn("source duration unavailable, progress disabled", "error", err)
		duration = 0
	}

	var lastLog string
	code, err := process.Stream(ctx, process.Cmd{
		Name:    e.cfg.FFmpeg,
		Args:    ffmpeg.ProxyArgs(source, target),
		Dir:     filepath.Dir(target),
		Started: func() { e.jobs.Start(jobID, "encoding") },
	}, func(line string) {
		ev, ok := ffmpeg.ParseLine(line)
		if !ok {
			return
		}
		switch ev.Kind {
		case ffmpeg.Progress:
			if pct, known := ffmpeg.Percent(ev.Elapsed, duration); known {
				e.jobs.SetProgress(jobID, pct)
			}
		case ffmpeg.Status:
			e.jobs.SetMessage(jobID, ev.Text)
		case ffmpeg.Log:
			lastLog = ev.Text
			e.jobs.AppendLog(jobID, ev.Text)
		}
	})

	switch {
	case errors.Is(err, process.ErrMissingBinary):
		e.finishFailed(jobID, "ffmpeg not installed or not in PATH")
		return false
	case code == 0 && err == nil && isFile(target):
		e.jobs.Complete(jobID, "proxy ready")
		logger.Info("proxy completed", "target", target)
		return true
	}

	msg := fmt.Sprintf("ffmpeg exited with %d", code)
	if lastLog != "" {
		msg += ": " + lastLog
	}
	e.finishFailed(jobID, msg)
	return false
}

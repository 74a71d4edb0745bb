package engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/workspace"
)

// AutoResult lists the jobs started by AutoProcess. Empty ids mean the step
// was skipped.
type AutoResult struct {
	ProxyJob string `json:"proxy_job,omitempty"`
	AudioJob string `json:"audio_job,omitempty"`
	// Transcribe is true when transcription was scheduled to follow audio
	// extraction.
	Transcribe bool `json:"transcribe"`
}

// AutoProcess prepares a freshly added video: it creates a proxy when the
// workspace has none, extracts audio when none exists and, once audio is
// available, transcribes it. Non-video files are ignored.
func (e *Engine) AutoProcess(ctx context.Context, ws *workspace.Context, video string) (AutoResult, error) {
	var res AutoResult
	logger := e.logger.With("video", video)

	if !workspace.IsVideo(video) {
		logger.Info("skipping auto-process, not a video")
		return res, nil
	}
	src, err := ws.Resolve(video)
	if err != nil {
		return res, err
	}
	if !isFile(src) {
		return res, ErrSourceNotFound
	}

	summary, err := ws.Refresh()
	if err != nil {
		return res, err
	}

	if summary.Files.Proxy == "" {
		base := filepath.Base(src)
		ext := filepath.Ext(base)
		dst := filepath.Join(filepath.Dir(src), strings.TrimSuffix(base, ext)+"_proxy"+ext)
		if !isFile(dst) {
			res.ProxyJob = e.startProxy("Auto-create proxy for "+filepath.Base(video), src, dst)
		}
	} else {
		logger.Info("proxy exists, skipping", "proxy", summary.Files.Proxy)
	}

	if summary.Files.Audio == "" {
		if e.scriptExists(AudioExtractScript) {
			id, err := e.startScript("Auto-extract audio", AudioExtractScript, ws.Root())
			if err != nil {
				return res, err
			}
			res.AudioJob = id
		} else {
			logger.Warn("audio extraction script not found", "script", AudioExtractScript)
		}
	}

	if summary.Files.TranscriptJSON != "" {
		logger.Info("transcript exists, skipping transcription")
		return res, nil
	}
	if !e.scriptExists(TranscribeScript) {
		logger.Warn("transcription script not found", "script", TranscribeScript)
		return res, nil
	}

	res.Transcribe = true
	audioJob := res.AudioJob
	e.wg.Go(func() {
		e.transcribeAfter(ctx, ws, audioJob)
	})
	return res, nil
}

// transcribeAfter waits for the audio job to finish, then starts
// transcription if the workspace now has audio.
func (e *Engine) transcribeAfter(ctx context.Context, ws *workspace.Context, audioJob string) {
	if audioJob != "" {
		job, err := e.jobs.Wait(ctx, audioJob)
		if err != nil {
			e.logger.Warn("gave up waiting for audio extraction", "job_id", audioJob, "error", err)
			return
		}
		if job.Status != model.StatusCompleted {
			e.logger.Warn("audio extraction failed, skipping transcription", "job_id", audioJob)
			return
		}
	}

	ws.Invalidate()
	summary, err := ws.Refresh()
	if err != nil || summary.Files.Audio == "" {
		e.logger.Warn("audio still not available, skipping transcription")
		return
	}
	if _, err := e.startScript("Auto-transcribe with Deepgram", TranscribeScript, ws.Root()); err != nil {
		e.logger.Error("start transcription", "error", err)
	}
}

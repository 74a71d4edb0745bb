package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/seantiz/podfree/internal/ffmpeg"
	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/process"
	"github.com/seantiz/podfree/internal/sandbox"
	"github.com/seantiz/podfree/internal/segment"
)

// ExportRequest asks for an edited render of Source. Either Words (an edit
// list) or Segments (precomputed keep intervals) must be provided; Segments
// wins when both are set.
type ExportRequest struct {
	Workspace string
	Source    string
	Words     []model.EditedWord
	Segments  []model.Segment
	Output    string
	Kind      string
}

// ExportResult identifies a started export.
type ExportResult struct {
	JobID      string `json:"job_id"`
	OutputFile string `json:"output_file"`
}

// StartExport validates req, creates an export job and renders in the
// background. Path escapes, a missing source, an invalid kind and an edit
// that keeps nothing are reported synchronously.
func (e *Engine) StartExport(req ExportRequest) (ExportResult, error) {
	if !model.ValidKind(req.Kind) {
		return ExportResult{}, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}
	root, err := sandbox.Resolve(req.Workspace, ".")
	if err != nil {
		return ExportResult{}, err
	}
	src, err := sandbox.Resolve(root, req.Source)
	if err != nil {
		return ExportResult{}, err
	}
	if !isFile(src) {
		return ExportResult{}, fmt.Errorf("%w: %s", ErrSourceNotFound, req.Source)
	}

	segments := req.Segments
	if segments == nil {
		segments = segment.Build(req.Words)
		kept, deleted := segment.Stats(req.Words)
		e.logger.Info("built export segments",
			"words", len(req.Words), "kept", kept, "deleted", deleted,
			"segments", len(segments), "duration_s", ffmpeg.FormatSeconds(segment.TotalDuration(segments)))
	}
	if len(segments) == 0 {
		return ExportResult{}, ErrEmptySegments
	}

	outName := req.Output
	if outName == "" {
		base := filepath.Base(src)
		outName = strings.TrimSuffix(base, filepath.Ext(base)) + "_edited" + ffmpeg.Extension(req.Kind)
	}
	out, err := sandbox.Resolve(root, outName)
	if err != nil {
		return ExportResult{}, err
	}
	if out == root {
		return ExportResult{}, fmt.Errorf("%w: output is the workspace root", sandbox.ErrPathEscape)
	}
	rel, err := filepath.Rel(root, out)
	if err != nil {
		return ExportResult{}, err
	}

	id := e.jobs.Create(model.TypeExport, fmt.Sprintf("Export edited %s: %s", req.Kind, req.Source), model.Payload{
		Export: &model.ExportPayload{Kind: req.Kind, Source: src, Output: out, Segments: len(segments)},
	})
	e.dispatch(id, func(ctx context.Context) {
		e.Export(ctx, id, src, segments, out, req.Kind)
	})
	return ExportResult{JobID: id, OutputFile: filepath.ToSlash(rel)}, nil
}

// Export renders segments of source into output for job jobID: every
// segment is re-encoded into its own temporary file, then the pieces are
// joined with the concat demuxer. A failed segment is logged and skipped; the
// export fails only when no segment survives or the join fails. It reports
// whether output was written.
func (e *Engine) Export(ctx context.Context, jobID, source string, segments []model.Segment, output, kind string) bool {
	logger := e.logger.With("job_id", jobID, "kind", kind)

	if len(segments) == 0 {
		e.finishFailed(jobID, "no segments to export")
		return false
	}

	e.jobs.Start(jobID, "preparing export")
	logger.Info("export started", "source", source, "output", output, "segments", len(segments))

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		e.finishFailed(jobID, fmt.Sprintf("create output directory: %v", err))
		return false
	}

	// Two exports to the same file run one after the other.
	if err := os.MkdirAll(e.cfg.LockDir, 0o755); err != nil {
		e.finishFailed(jobID, fmt.Sprintf("create lock directory: %v", err))
		return false
	}
	lock := flock.New(lockPath(e.cfg.LockDir, output))
	if err := lock.Lock(); err != nil {
		e.finishFailed(jobID, fmt.Sprintf("lock output: %v", err))
		return false
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("unlock output", "error", err)
		}
	}()

	if err := os.Remove(output); err == nil {
		logger.Info("removed existing output", "output", output)
	} else if !errors.Is(err, fs.ErrNotExist) {
		e.finishFailed(jobID, fmt.Sprintf("remove existing output: %v", err))
		return false
	}

	tmp, err := os.MkdirTemp("", "podfree-export-*")
	if err != nil {
		e.finishFailed(jobID, fmt.Sprintf("create temp dir: %v", err))
		return false
	}
	defer os.RemoveAll(tmp)

	n := len(segments)
	files := make([]string, 0, n)
	for i, seg := range segments {
		e.jobs.Progress(jobID, float64(i)/float64(n)*50, fmt.Sprintf("extracting segment %d/%d", i+1, n))
		dst := filepath.Join(tmp, ffmpeg.SegmentName(kind, i))
		ok, err := e.extractSegment(ctx, jobID, i, n, kind, seg, source, dst)
		if errors.Is(err, process.ErrMissingBinary) {
			e.finishFailed(jobID, "ffmpeg not installed or not in PATH")
			return false
		}
		if ok {
			files = append(files, dst)
		}
	}
	if len(files) == 0 {
		e.finishFailed(jobID, "failed to extract segments")
		return false
	}
	logger.Info("segments extracted", "ok", len(files), "total", n)

	manifest := filepath.Join(tmp, "concat.txt")
	if err := ffmpeg.WriteManifest(manifest, files); err != nil {
		e.finishFailed(jobID, err.Error())
		return false
	}

	e.jobs.Progress(jobID, 60, "concatenating segments")
	res, err := process.Run(ctx, e.cfg.FFmpeg, ffmpeg.ConcatArgs(manifest, output)...)
	if errors.Is(err, process.ErrMissingBinary) {
		e.finishFailed(jobID, "ffmpeg not installed or not in PATH")
		return false
	}
	if err != nil {
		detail := process.Tail(res.Stderr, 3)
		if detail == "" {
			detail = err.Error()
		}
		e.jobs.AppendLog(jobID, "concat: "+detail)
		e.finishFailed(jobID, "concatenation failed: "+detail)
		return false
	}

	info, err := os.Stat(output)
	if err != nil {
		e.finishFailed(jobID, "output file not created")
		return false
	}

	size := humanize.Bytes(uint64(info.Size()))
	e.jobs.AppendLog(jobID, fmt.Sprintf("wrote %s (%s) from %d of %d segments", filepath.Base(output), size, len(files), n))
	e.jobs.Complete(jobID, "export completed")
	logger.Info("export completed", "output", output, "size", size)
	return true
}

// extractSegment re-encodes one keep interval into dst. A non-nil error is
// returned only when ffmpeg itself cannot be run.
func (e *Engine) extractSegment(ctx context.Context, jobID string, i, n int, kind string, seg model.Segment, source, dst string) (bool, error) {
	var lastLog string
	code, err := process.Stream(ctx, process.Cmd{
		Name: e.cfg.FFmpeg,
		Args: ffmpeg.ExtractArgs(kind, seg, source, dst),
		Dir:  filepath.Dir(dst),
	}, func(line string) {
		ev, ok := ffmpeg.ParseLine(line)
		if !ok {
			return
		}
		switch ev.Kind {
		case ffmpeg.Progress:
			if pct, known := ffmpeg.Percent(ev.Elapsed, seg.Duration()); known {
				e.jobs.SetProgress(jobID, (float64(i)+min(pct, 100)/100)/float64(n)*50)
			}
		case ffmpeg.Log:
			lastLog = ev.Text
		}
	})
	if errors.Is(err, process.ErrMissingBinary) {
		return false, err
	}

	name := fmt.Sprintf("segment %d/%d [%s-%s]", i+1, n, ffmpeg.FormatSeconds(seg.Start), ffmpeg.FormatSeconds(seg.End))
	if err != nil || code != 0 {
		msg := fmt.Sprintf("%s: ffmpeg exited with %d", name, code)
		if lastLog != "" {
			msg += ": " + lastLog
		}
		e.jobs.AppendLog(jobID, msg)
		e.logger.Warn("segment extraction failed", "job_id", jobID, "segment", i+1, "code", code)
		return false, nil
	}
	info, err := os.Stat(dst)
	if err != nil || info.Size() == 0 {
		e.jobs.AppendLog(jobID, name+": output missing or empty")
		e.logger.Warn("segment output missing or empty", "job_id", jobID, "segment", i+1)
		return false, nil
	}
	e.logger.Debug("segment extracted", "job_id", jobID, "segment", i+1, "size", humanize.Bytes(uint64(info.Size())))
	return true, nil
}

// lockPath maps an output file to its lock under dir. The name is derived
// from the absolute output path so equal outputs share one lock.
func lockPath(dir, output string) string {
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	sum := sha256.Sum256([]byte(output))
	return filepath.Join(dir, hex.EncodeToString(sum[:8])+".lock")
}

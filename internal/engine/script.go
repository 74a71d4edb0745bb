package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seantiz/podfree/internal/model"
	"github.com/seantiz/podfree/internal/process"
	"github.com/seantiz/podfree/internal/sandbox"
	"github.com/seantiz/podfree/internal/workspace"
)

// Well-known helper scripts, relative to the scripts directory.
const (
	AudioExtractScript = "editing/extract_audio_from_video.py"
	TranscribeScript   = "ai-tools/deepgram_transcribe_debates.py"
)

// Script readiness.
const (
	ScriptReady   = "ready"
	ScriptMissing = "missing"
	ScriptUnknown = "unknown"
)

// skippedScripts are library modules, not entry points.
var skippedScripts = map[string]bool{
	"__init__.py":   true,
	"llm_client.py": true,
}

var scriptOrder = []string{
	"extract_audio_from_video.py",
	"detect_silence.py",
	"remove_silence.py",
	"deepgram_transcribe_debates.py",
	"generate_covers.py",
	"generate_chapters.py",
	"export_castopod_chapters.py",
	"prepare_linkedin_post.py",
	"identify_participants.py",
	"create_ghost_post.py",
	"castopod_post.py",
	"post_to_linkedin.py",
	"post_to_facebook.py",
	"post_to_twitter.py",
	"post_to_mastodon.py",
	"post_to_bluesky.py",
}

// Script describes a runnable helper script.
type Script struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Label   string   `json:"label"`
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
}

// StartScript runs script (relative to the scripts directory) with workDir as
// its working directory.
func (e *Engine) StartScript(script, workDir string) (string, error) {
	return e.startScript("", script, workDir)
}

func (e *Engine) startScript(label, script, workDir string) (string, error) {
	if e.cfg.ScriptsDir == "" {
		return "", fmt.Errorf("%w: scripts directory not configured", ErrScriptNotFound)
	}
	path, err := sandbox.Resolve(e.cfg.ScriptsDir, script)
	if err != nil {
		return "", err
	}
	if !isFile(path) {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, script)
	}
	if label == "" {
		label = "Run " + filepath.Base(path)
	}
	id := e.jobs.Create(model.TypeScript, label, model.Payload{
		Script: &model.ScriptPayload{Script: path, WorkDir: workDir},
	})
	e.dispatch(id, func(ctx context.Context) {
		e.RunScript(ctx, id, path, workDir)
	})
	return id, nil
}

// RunScript executes script in workDir, appending every output line to job
// jobID. It reports whether the script exited cleanly.
func (e *Engine) RunScript(ctx context.Context, jobID, script, workDir string) bool {
	logger := e.logger.With("job_id", jobID)
	logger.Info("script started", "script", script)

	if !isFile(script) {
		e.finishFailed(jobID, "script not found: "+script)
		return false
	}

	name, args := e.interpreter(script)
	code, err := process.Stream(ctx, process.Cmd{
		Name:    name,
		Args:    args,
		Dir:     workDir,
		Started: func() { e.jobs.Start(jobID, "running") },
	}, func(line string) {
		e.jobs.AppendLog(jobID, line)
	})

	switch {
	case errors.Is(err, process.ErrMissingBinary):
		e.finishFailed(jobID, name+" not available")
		return false
	case code == 0 && err == nil:
		e.jobs.Complete(jobID, "completed")
		logger.Info("script finished")
		return true
	case code < 0:
		e.finishFailed(jobID, fmt.Sprintf("script did not run: %v", err))
		return false
	}
	e.finishFailed(jobID, fmt.Sprintf("exit code %d", code))
	return false
}

// interpreter picks the command that runs script.
func (e *Engine) interpreter(script string) (string, []string) {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".py":
		return e.cfg.Python, []string{script}
	case ".sh":
		return "sh", []string{script}
	}
	return script, nil
}

// ListScripts discovers the helper scripts under the scripts directory. When
// summary is non-nil the well-known scripts report whether their outputs
// already exist in that workspace.
func (e *Engine) ListScripts(summary *workspace.Summary) ([]Script, error) {
	root := e.cfg.ScriptsDir
	if root == "" {
		return []Script{}, nil
	}

	scripts := []Script{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if (ext != ".py" && ext != ".sh") || skippedScripts[name] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		status, outputs := scriptStatus(name, summary)
		scripts = append(scripts, Script{
			Name:    name,
			Path:    filepath.ToSlash(rel),
			Label:   ScriptLabel(name),
			Status:  status,
			Outputs: outputs,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Script{}, nil
		}
		return nil, fmt.Errorf("list scripts: %w", err)
	}

	slices.SortStableFunc(scripts, func(a, b Script) int {
		if pa, pb := scriptRank(a.Name), scriptRank(b.Name); pa != pb {
			return pa - pb
		}
		return strings.Compare(a.Label, b.Label)
	})
	return scripts, nil
}

// ScriptLabel turns a script file name into a title, e.g.
// generate_chapters.py becomes "Generate Chapters".
func ScriptLabel(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

func scriptRank(name string) int {
	if i := slices.Index(scriptOrder, name); i >= 0 {
		return i
	}
	return len(scriptOrder)
}

// scriptStatus reports readiness for the scripts whose inputs or outputs can
// be recognised in a workspace summary.
func scriptStatus(name string, s *workspace.Summary) (string, []string) {
	outputs := []string{}
	if s == nil {
		return ScriptUnknown, outputs
	}
	existing := func(rels ...string) []string {
		out := []string{}
		for _, rel := range rels {
			if rel == "" || slices.Contains(out, rel) {
				continue
			}
			if isFile(filepath.Join(s.Path, filepath.FromSlash(rel))) {
				out = append(out, rel)
			}
		}
		return out
	}
	readyIf := func(ok bool) string {
		if ok {
			return ScriptReady
		}
		return ScriptMissing
	}

	switch name {
	case "deepgram_transcribe_debates.py":
		outputs = existing(append([]string{s.Files.TranscriptJSON}, s.Options.TranscriptJSON...)...)
		return readyIf(len(outputs) > 0), outputs
	case "extract_audio_from_video.py":
		outputs = existing(append([]string{s.Files.Audio}, s.Options.Audio...)...)
		return readyIf(len(outputs) > 0), outputs
	case "generate_covers.py":
		outputs = existing("youtube-cover.jpg", "podcast-cover.jpg")
		return readyIf(len(outputs) > 0), outputs
	case "generate_chapters.py":
		outputs = existing(append([]string{s.Files.TranscriptJSON}, s.Options.TranscriptJSON...)...)
		return readyIf(s.Files.TranscriptJSON != "" && len(outputs) > 0), outputs
	case "export_castopod_chapters.py":
		outputs = existing(s.Options.Chapters...)
		return readyIf(s.Files.Notes != "" && len(outputs) > 0), outputs
	case "prepare_linkedin_post.py", "post_to_linkedin.py":
		return readyIf(s.Files.Notes != ""), outputs
	case "identify_participants.py":
		return readyIf(s.Files.TranscriptJSON != "" && s.Files.Notes != ""), outputs
	}
	return ScriptUnknown, outputs
}

// scriptExists reports whether rel names a script under the scripts directory.
func (e *Engine) scriptExists(rel string) bool {
	if e.cfg.ScriptsDir == "" {
		return false
	}
	path, err := sandbox.Resolve(e.cfg.ScriptsDir, rel)
	return err == nil && isFile(path)
}


package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	subtitleExts = []string{".srt", ".vtt"}
	videoExts    = []string{".mp4", ".mov", ".mkv", ".webm", ".avi"}
	audioExts    = []string{".mp3", ".wav", ".flac"}

	proxyKeywords = []string{"proxy", "light", "ultra", "low"}
)

// Files names the primary asset of each kind, relative to the workspace.
// An empty string means none was found.
type Files struct {
	Notes          string `json:"notes"`
	SRT            string `json:"srt"`
	Video          string `json:"video"`
	Audio          string `json:"audio"`
	Proxy          string `json:"proxy"`
	TranscriptJSON string `json:"transcript_json"`
	Chapters       string `json:"chapters"`
}

// Options lists every candidate of each kind.
type Options struct {
	Notes          []string `json:"notes"`
	SRT            []string `json:"srt"`
	Video          []string `json:"video"`
	Audio          []string `json:"audio"`
	TranscriptJSON []string `json:"transcript_json"`
	Chapters       []string `json:"chapters"`
}

// Missing flags asset kinds with no candidate at all.
type Missing struct {
	Video    bool `json:"video"`
	SRT      bool `json:"srt"`
	Notes    bool `json:"notes"`
	Audio    bool `json:"audio"`
	Chapters bool `json:"chapters"`
}

// Summary classifies the media and documents found in a workspace directory.
type Summary struct {
	Path      string    `json:"path"`
	Valid     bool      `json:"valid"`
	Files     Files     `json:"files"`
	Options   Options   `json:"options"`
	Missing   Missing   `json:"missing"`
	ScannedAt time.Time `json:"scanned_at"`
}

// IsVideo reports whether name has a recognised video extension.
func IsVideo(name string) bool {
	return hasExt(name, videoExts)
}

// IsProxyName reports whether name looks like a lightweight proxy render.
func IsProxyName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range proxyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Summarize scans dir and classifies its contents. A missing directory yields
// an empty, invalid summary rather than an error.
func Summarize(dir string) (Summary, error) {
	s := Summary{
		Path:      dir,
		ScannedAt: time.Now().UTC(),
		Options: Options{
			Notes: []string{}, SRT: []string{}, Video: []string{},
			Audio: []string{}, TranscriptJSON: []string{}, Chapters: []string{},
		},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.Missing = Missing{Video: true, SRT: true, Notes: true, Audio: true, Chapters: true}
			return s, nil
		}
		return s, fmt.Errorf("read workspace %s: %w", dir, err)
	}

	var markdown []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		switch {
		case hasExt(name, []string{".md"}):
			if matched, _ := filepath.Match("Notes*.md", name); matched {
				s.Options.Notes = append(s.Options.Notes, name)
			} else if !strings.EqualFold(name, "readme.md") {
				markdown = append(markdown, name)
			}
		case hasExt(name, subtitleExts):
			s.Options.SRT = append(s.Options.SRT, name)
		case hasExt(name, videoExts):
			s.Options.Video = append(s.Options.Video, name)
		case hasExt(name, audioExts):
			s.Options.Audio = append(s.Options.Audio, name)
		}
	}
	// Fall back to any markdown document when no Notes file exists.
	if len(s.Options.Notes) == 0 {
		s.Options.Notes = append(s.Options.Notes, markdown...)
	}

	transcripts, err := findTranscripts(dir)
	if err != nil {
		return s, err
	}
	s.Options.TranscriptJSON = transcripts

	chapters, err := filepath.Glob(filepath.Join(dir, "Castopod", "*.json"))
	if err != nil {
		return s, fmt.Errorf("glob chapters: %w", err)
	}
	for _, c := range chapters {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			s.Options.Chapters = append(s.Options.Chapters, "Castopod/"+filepath.Base(c))
		}
	}

	for _, list := range [][]string{s.Options.Notes, s.Options.SRT, s.Options.Video, s.Options.Audio, s.Options.Chapters} {
		slices.Sort(list)
	}

	s.Files = Files{
		Notes:          first(s.Options.Notes),
		SRT:            first(s.Options.SRT),
		Audio:          first(s.Options.Audio),
		TranscriptJSON: first(s.Options.TranscriptJSON),
		Chapters:       first(s.Options.Chapters),
	}
	s.Files.Video, s.Files.Proxy = pickVideo(s.Options.Video)

	s.Valid = s.Files.Video != ""
	s.Missing = Missing{
		Video:    !s.Valid,
		SRT:      len(s.Options.SRT) == 0,
		Notes:    len(s.Options.Notes) == 0,
		Audio:    len(s.Options.Audio) == 0,
		Chapters: len(s.Options.Chapters) == 0,
	}
	return s, nil
}

// pickVideo prefers a non-proxy file as the main video and reports the first
// other proxy-named file as the proxy.
func pickVideo(videos []string) (video, proxy string) {
	for _, v := range videos {
		if !IsProxyName(v) {
			video = v
			break
		}
	}
	if video == "" {
		video = first(videos)
	}
	for _, v := range videos {
		if IsProxyName(v) && v != video {
			proxy = v
			break
		}
	}
	return video, proxy
}

type rankedPath struct {
	rank int
	rel  string
}

// findTranscripts walks dir for transcript JSON files ordered deliberation,
// then transcript, then raw.
func findTranscripts(dir string) ([]string, error) {
	var found []rankedPath
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.Type().IsRegular() || !hasExt(d.Name(), []string{".json"}) {
			return nil
		}
		name := strings.ToLower(d.Name())
		rank := -1
		switch {
		case strings.Contains(name, "deliberation"):
			rank = 0
		case strings.Contains(name, "transcript"):
			rank = 1
		case strings.Contains(name, "raw"):
			rank = 2
		}
		if rank < 0 {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		found = append(found, rankedPath{rank: rank, rel: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan transcripts: %w", err)
	}

	slices.SortFunc(found, func(a, b rankedPath) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return strings.Compare(a.rel, b.rel)
	})
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, f.rel)
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

func first(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

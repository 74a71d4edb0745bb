package ffmpeg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seantiz/podfree/internal/model"
)

// ProxyArgs builds the low-resolution proxy encode. Progress is written to
// stdout in key=value form.
func ProxyArgs(src, dst string) []string {
	return []string{
		"-y", "-i", src,
		"-vf", "scale=640:-2,fps=15",
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "32",
		"-c:a", "aac", "-b:a", "96k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-loglevel", "error",
		dst,
	}
}

// ExtractArgs cuts seg out of src into dst, re-encoding for the export kind.
func ExtractArgs(kind string, seg model.Segment, src, dst string) []string {
	args := []string{
		"-y",
		"-ss", FormatSeconds(seg.Start),
		"-i", src,
		"-t", FormatSeconds(seg.Duration()),
	}
	if kind == model.KindVideo {
		args = append(args,
			"-c:v", "libx264", "-preset", "fast", "-crf", "23",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
		)
	} else {
		args = append(args, "-vn", "-c:a", "libmp3lame", "-b:a", "192k")
	}
	return append(args, "-progress", "pipe:1", "-nostats", "-loglevel", "error", dst)
}

// ConcatArgs joins the files listed in manifest without re-encoding.
func ConcatArgs(manifest, dst string) []string {
	return []string{"-y", "-f", "concat", "-safe", "0", "-i", manifest, "-c", "copy", "-loglevel", "error", dst}
}

// Extension returns the container extension used for kind.
func Extension(kind string) string {
	if kind == model.KindVideo {
		return ".mp4"
	}
	return ".mp3"
}

// SegmentName is the file name of the i-th extracted segment.
func SegmentName(kind string, i int) string {
	return fmt.Sprintf("segment_%04d%s", i, Extension(kind))
}

// FormatSeconds renders a timestamp with millisecond precision.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// QuoteManifestPath quotes p for a concat demuxer manifest line.
func QuoteManifestPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// WriteManifest writes a concat demuxer manifest listing files in order.
func WriteManifest(path string, files []string) error {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("file ")
		b.WriteString(QuoteManifestPath(f))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/seantiz/podfree/internal/process"
)

// ErrNoDuration is returned when ffprobe output does not contain a usable
// duration.
var ErrNoDuration = errors.New("duration unavailable")

// ProbeArgs returns the ffprobe arguments that print only the container
// duration in seconds.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

// Duration asks ffprobe for the duration of path in seconds.
func Duration(ctx context.Context, ffprobe, path string) (float64, error) {
	res, err := process.Run(ctx, ffprobe, ProbeArgs(path)...)
	if err != nil {
		if errors.Is(err, process.ErrMissingBinary) {
			return 0, err
		}
		return 0, fmt.Errorf("ffprobe %s: %w (%s)", path, err, process.Tail(res.Stderr, 3))
	}
	return parseDuration(res.Stdout)
}

func parseDuration(out string) (float64, error) {
	raw := strings.TrimSpace(out)
	if raw == "" || raw == "N/A" {
		return 0, ErrNoDuration
	}
	// Some containers report one value per line; the first is the format.
	if first, _, ok := strings.Cut(raw, "\n"); ok {
		raw = strings.TrimSpace(first)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, raw)
	}
	return v, nil
}

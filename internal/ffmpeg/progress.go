// Package ffmpeg knows how to talk to the ffmpeg and ffprobe binaries: it
// builds their argument lists, parses the -progress key=value protocol and
// reads media durations.
package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// EventKind tags a parsed output line.
type EventKind int

const (
	// Log is a free-form line that belongs in the job log.
	Log EventKind = iota
	// Progress carries the encoded position in Event.Elapsed.
	Progress
	// Status carries the progress= phrase ("continue", "end") in Event.Text.
	Status
	// Ignored is progress protocol noise.
	Ignored
)

func (k EventKind) String() string {
	switch k {
	case Log:
		return "log"
	case Progress:
		return "progress"
	case Status:
		return "status"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Event is one classified line of ffmpeg output.
type Event struct {
	Kind    EventKind
	Elapsed time.Duration
	Text    string
}

// protocolKeys are the -progress keys other than out_time_ms and progress.
var protocolKeys = map[string]bool{
	"frame":       true,
	"fps":         true,
	"bitrate":     true,
	"total_size":  true,
	"out_time_us": true,
	"out_time":    true,
	"dup_frames":  true,
	"drop_frames": true,
	"speed":       true,
}

// ParseLine classifies a single line of ffmpeg output. It reports false for
// blank lines, which carry nothing.
//
// out_time_ms is in microseconds despite its name.
func ParseLine(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}

	key, value, found := strings.Cut(line, "=")
	if !found {
		return Event{Kind: Log, Text: line}, true
	}

	switch {
	case key == "out_time_ms":
		if value == "N/A" {
			return Event{Kind: Ignored, Text: line}, true
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return Event{Kind: Ignored, Text: line}, true
		}
		return Event{Kind: Progress, Elapsed: time.Duration(us) * time.Microsecond, Text: line}, true
	case key == "progress":
		return Event{Kind: Status, Text: value}, true
	case protocolKeys[key] || strings.HasPrefix(key, "stream_"):
		return Event{Kind: Ignored, Text: line}, true
	}
	return Event{Kind: Log, Text: line}, true
}

// Percent converts elapsed into a percentage of total. It reports false when
// total is unknown.
func Percent(elapsed time.Duration, total float64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	return elapsed.Seconds() / total * 100, true
}

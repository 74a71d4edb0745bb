package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusRunning, false},
		{StatusFailed, StatusCompleted, false},
		{"bogus", StatusRunning, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(StatusPending) || IsTerminal(StatusRunning) {
		t.Error("pending/running must not be terminal")
	}
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusFailed) {
		t.Error("completed/failed must be terminal")
	}
}

func TestJobCloneIsIndependent(t *testing.T) {
	orig := Job{
		ID:      NewID(),
		Logs:    []string{"a"},
		Payload: Payload{Export: &ExportPayload{Kind: KindAudio, Source: "in.mp4"}},
	}
	c := orig.Clone()
	c.Logs[0] = "mutated"
	c.Payload.Export.Source = "other.mp4"

	if orig.Logs[0] != "a" {
		t.Errorf("clone shares logs backing array")
	}
	if orig.Payload.Export.Source != "in.mp4" {
		t.Errorf("clone shares payload pointer")
	}
}

func TestJobCloneNilLogsBecomesEmpty(t *testing.T) {
	c := Job{}.Clone()
	if c.Logs == nil {
		t.Error("Clone should normalize nil logs to an empty slice")
	}
}

func TestSegmentDuration(t *testing.T) {
	s := Segment{Start: 1.25, End: 3.75}
	if got := s.Duration(); got != 2.5 {
		t.Errorf("Duration() = %v, want 2.5", got)
	}
}

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no edits are stored for a transcript.
var ErrNotFound = errors.New("transcript edits not found")

// ErrInvalidEdits is returned when an edit list contains a negative index.
var ErrInvalidEdits = errors.New("invalid transcript edits")

// TranscriptEdits is the saved edit state of one transcript: the indices of
// the words the editor marked as deleted.
type TranscriptEdits struct {
	Project        string    `json:"project"`
	TranscriptFile string    `json:"transcript_file"`
	DeletedIndices []int     `json:"deletedIndices"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store persists transcript edits between sessions.
type Store interface {
	SaveTranscriptEdits(ctx context.Context, project, transcriptFile string, deleted []int) error
	LoadTranscriptEdits(ctx context.Context, project, transcriptFile string) ([]int, error)
	ListTranscriptEdits(ctx context.Context, project string) ([]TranscriptEdits, error)
	DeleteTranscriptEdits(ctx context.Context, project, transcriptFile string) error
	Close() error
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "modernc.org/sqlite"
)

const createTranscriptEditsTable = `
CREATE TABLE IF NOT EXISTS transcript_edits (
    project         TEXT NOT NULL,
    transcript_file TEXT NOT NULL,
    edits_json      TEXT NOT NULL,
    updated_at      DATETIME NOT NULL,
    PRIMARY KEY (project, transcript_file)
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createTranscriptEditsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript_edits table: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type editsDoc struct {
	DeletedIndices []int `json:"deletedIndices"`
}

// SaveTranscriptEdits replaces the stored edits for a transcript. Indices are
// stored sorted and without duplicates.
func (s *SQLiteStore) SaveTranscriptEdits(ctx context.Context, project, transcriptFile string, deleted []int) error {
	if project == "" || transcriptFile == "" {
		return fmt.Errorf("%w: project and transcript file are required", ErrInvalidEdits)
	}
	indices := slices.Clone(deleted)
	slices.Sort(indices)
	indices = slices.Compact(indices)
	if len(indices) > 0 && indices[0] < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidEdits, indices[0])
	}
	if indices == nil {
		indices = []int{}
	}

	data, err := json.Marshal(editsDoc{DeletedIndices: indices})
	if err != nil {
		return fmt.Errorf("encode edits: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcript_edits (project, transcript_file, edits_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project, transcript_file) DO UPDATE SET
			edits_json = excluded.edits_json,
			updated_at = excluded.updated_at`,
		project, transcriptFile, string(data), s.now(),
	)
	if err != nil {
		return fmt.Errorf("save transcript edits: %w", err)
	}
	return nil
}

// LoadTranscriptEdits returns the deleted word indices for a transcript, or
// an empty slice when nothing has been saved.
func (s *SQLiteStore) LoadTranscriptEdits(ctx context.Context, project, transcriptFile string) ([]int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT edits_json FROM transcript_edits WHERE project = ? AND transcript_file = ?`,
		project, transcriptFile,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript edits: %w", err)
	}
	return decodeEdits(raw)
}

// ListTranscriptEdits returns every saved transcript of a project, most
// recently updated first.
func (s *SQLiteStore) ListTranscriptEdits(ctx context.Context, project string) ([]TranscriptEdits, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project, transcript_file, edits_json, updated_at
		FROM transcript_edits WHERE project = ?
		ORDER BY updated_at DESC, transcript_file ASC`, project,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcript edits: %w", err)
	}
	defer rows.Close()

	out := []TranscriptEdits{}
	for rows.Next() {
		var (
			e   TranscriptEdits
			raw string
		)
		if err := rows.Scan(&e.Project, &e.TranscriptFile, &raw, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript edits: %w", err)
		}
		if e.DeletedIndices, err = decodeEdits(raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript edits: %w", err)
	}
	return out, nil
}

// DeleteTranscriptEdits forgets the edits of a transcript.
func (s *SQLiteStore) DeleteTranscriptEdits(ctx context.Context, project, transcriptFile string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transcript_edits WHERE project = ? AND transcript_file = ?`,
		project, transcriptFile,
	)
	if err != nil {
		return fmt.Errorf("delete transcript edits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeEdits(raw string) ([]int, error) {
	var doc editsDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode transcript edits: %w", err)
	}
	if doc.DeletedIndices == nil {
		return []int{}, nil
	}
	return doc.DeletedIndices, nil
}

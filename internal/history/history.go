// Package history records pipeline runs in a standalone SQLite file so
// past exports can be listed and compared. One row per run: inputs,
// settings that shaped the mesh, triangle count, duration, and outcome.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    started_at  TIMESTAMP NOT NULL,
    input       TEXT NOT NULL,
    output      TEXT NOT NULL,
    mode        TEXT NOT NULL,
    backend     TEXT NOT NULL,
    triangles   INTEGER,
    duration_ms INTEGER,
    status      TEXT NOT NULL,
    error       TEXT
);
`

// Run is one recorded pipeline invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Input     string
	Output    string
	Mode      string
	Backend   string
	Triangles int
	Duration  time.Duration
	Status    string
	Error     string
}

// Run status values.
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Store wraps the SQLite run log.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle. Calling Close on a nil Store is a
// no-op, matching the emitter convention.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Insert records one finished run. A nil Store drops the record.
func (s *Store) Insert(ctx context.Context, r Run) error {
	if s == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, input, output, mode, backend, triangles, duration_ms, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.Input, r.Output, r.Mode, r.Backend,
		r.Triangles, r.Duration.Milliseconds(), r.Status, r.Error)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", r.ID, err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, input, output, mode, backend, triangles, duration_ms, status, COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Input, &r.Output, &r.Mode, &r.Backend,
			&r.Triangles, &durationMS, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

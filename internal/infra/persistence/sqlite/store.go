// Package sqlite persists extraction runs in a single SQLite table as
// JSON snapshots.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"detgeom/internal/persistence"
	"detgeom/pkg/geometry"
)

// Store is a file-backed RunStore.
type Store struct {
	db *sql.DB
}

var _ persistence.RunStore = (*Store)(nil)

// NewStore opens (or creates) the database at path and ensures the
// runs table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "detgeom.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		name TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		created_at TEXT NOT NULL,
		counts TEXT NOT NULL,
		bundle BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun writes the run, replacing any previous run of the same name.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	bundle, err := json.Marshal(run.Bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs (name, model, created_at, counts, bundle)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			model = excluded.model,
			created_at = excluded.created_at,
			counts = excluded.counts,
			bundle = excluded.bundle`,
		run.Name, run.Model, run.CreatedAt.UTC().Format(time.RFC3339Nano), string(counts), bundle)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.Name, err)
	}
	return nil
}

// GetRun loads a run including its full bundle.
func (s *Store) GetRun(ctx context.Context, name string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT name, model, created_at, counts, bundle FROM runs WHERE name = ?`, name)
	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", persistence.ErrRunNotFound, name)
	}
	return run, err
}

// ListRuns returns run summaries without bundles, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, model, created_at, counts FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Run aliases the shared record type.
type Run = persistence.Run

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner, withBundle bool) (Run, error) {
	var (
		run       Run
		createdAt string
		counts    string
		bundle    []byte
	)
	dest := []any{&run.Name, &run.Model, &createdAt, &counts}
	if withBundle {
		dest = append(dest, &bundle)
	}
	if err := sc.Scan(dest...); err != nil {
		return Run{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("decode created_at: %w", err)
	}
	run.CreatedAt = ts
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return Run{}, fmt.Errorf("decode counts: %w", err)
	}
	if withBundle && len(bundle) > 0 {
		run.Bundle = new(geometry.Bundle)
		if err := json.Unmarshal(bundle, run.Bundle); err != nil {
			return Run{}, fmt.Errorf("decode bundle: %w", err)
		}
	}
	return run, nil
}

// Package postgres persists extraction runs in Postgres, mirroring the
// SQLite snapshot semantics for shared deployments.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"detgeom/internal/persistence"
	"detgeom/pkg/geometry"
)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/detgeom?sslmode=disable"
)

// Store is a Postgres-backed RunStore.
type Store struct {
	db *sql.DB
}

var _ persistence.RunStore = (*Store)(nil)

// NewStore connects using dsn (falling back to a local default), pings
// the server and ensures the runs table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS runs (
		name TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		counts JSONB NOT NULL,
		bundle JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun writes the run, replacing any previous run of the same name.
func (s *Store) SaveRun(ctx context.Context, run persistence.Run) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	bundle, err := json.Marshal(run.Bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs (name, model, created_at, counts, bundle)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			model = excluded.model,
			created_at = excluded.created_at,
			counts = excluded.counts,
			bundle = excluded.bundle`,
		run.Name, run.Model, run.CreatedAt.UTC(), counts, bundle)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.Name, err)
	}
	return nil
}

// GetRun loads a run including its full bundle.
func (s *Store) GetRun(ctx context.Context, name string) (persistence.Run, error) {
	var (
		run       persistence.Run
		createdAt time.Time
		counts    []byte
		bundle    []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, model, created_at, counts, bundle FROM runs WHERE name = $1`, name).
		Scan(&run.Name, &run.Model, &createdAt, &counts, &bundle)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Run{}, fmt.Errorf("%w: %s", persistence.ErrRunNotFound, name)
	}
	if err != nil {
		return persistence.Run{}, fmt.Errorf("get run %s: %w", name, err)
	}
	run.CreatedAt = createdAt
	if err := json.Unmarshal(counts, &run.Counts); err != nil {
		return persistence.Run{}, fmt.Errorf("decode counts: %w", err)
	}
	if len(bundle) > 0 {
		run.Bundle = new(geometry.Bundle)
		if err := json.Unmarshal(bundle, run.Bundle); err != nil {
			return persistence.Run{}, fmt.Errorf("decode bundle: %w", err)
		}
	}
	return run, nil
}

// ListRuns returns run summaries without bundles, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]persistence.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, model, created_at, counts FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []persistence.Run
	for rows.Next() {
		var (
			run       persistence.Run
			createdAt time.Time
			counts    []byte
		)
		if err := rows.Scan(&run.Name, &run.Model, &createdAt, &counts); err != nil {
			return nil, err
		}
		run.CreatedAt = createdAt
		if err := json.Unmarshal(counts, &run.Counts); err != nil {
			return nil, fmt.Errorf("decode counts: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

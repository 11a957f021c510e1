// Package pgstore implements cache.Store on PostgreSQL, so several sweepgrid
// processes can share completed work.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sweepgrid_cache_entries (
		fingerprint TEXT PRIMARY KEY,
		task        TEXT NOT NULL,
		status      TEXT NOT NULL,
		error       TEXT,
		outputs     JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)
`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
}

// New wraps db. Call EnsureSchema once before first use.
func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the entries table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, fp fingerprint.Fingerprint) (*cache.Entry, error) {
	query := `
		SELECT task, status, error, outputs, created_at
		FROM sweepgrid_cache_entries
		WHERE fingerprint = $1
	`
	var (
		e       = cache.Entry{Fingerprint: fp}
		status  string
		errText *string
		outputs []byte
	)
	err := s.db.QueryRow(ctx, query, fp.String()).Scan(&e.Task, &status, &errText, &outputs, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	if e.Status, err = cache.ParseStatus(status); err != nil {
		return nil, err
	}
	if errText != nil {
		e.Error = *errText
	}
	if e.Outputs, err = cache.UnmarshalOutputs(outputs); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) Put(ctx context.Context, e *cache.Entry) error {
	outputs, err := cache.MarshalOutputs(e.Outputs)
	if err != nil {
		return err
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `
		INSERT INTO sweepgrid_cache_entries (fingerprint, task, status, error, outputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO UPDATE
		SET task = EXCLUDED.task, status = EXCLUDED.status, error = EXCLUDED.error,
		    outputs = EXCLUDED.outputs, created_at = EXCLUDED.created_at
	`
	_, err = s.db.Exec(ctx, query,
		e.Fingerprint.String(),
		e.Task,
		e.Status.String(),
		nullString(e.Error),
		outputs,
		created,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, fp fingerprint.Fingerprint) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sweepgrid_cache_entries WHERE fingerprint = $1`, fp.String()); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Flush is a no-op; every statement is committed as it runs.
func (s *Store) Flush(ctx context.Context) error {
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ cache.Store = (*Store)(nil)

// Package postgres persists postings, application errors and candidate
// profiles in Postgres through pgx.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the connection pool and table names.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	Tables          Tables
}

// Tables names the three tables the store writes.
type Tables struct {
	Postings   string
	Errors     string
	Candidates string
}

func (t Tables) withDefaults() (Tables, error) {
	if t.Postings == "" {
		t.Postings = "postings"
	}
	if t.Errors == "" {
		t.Errors = "application_errors"
	}
	if t.Candidates == "" {
		t.Candidates = "candidates"
	}
	for _, name := range []string{t.Postings, t.Errors, t.Candidates} {
		if !validTableName.MatchString(name) {
			return Tables{}, fmt.Errorf("invalid table name %q", name)
		}
	}
	return t, nil
}

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

// Store implements jobs.PostingStore, jobs.ErrorStore and
// jobs.CandidateStore.
type Store struct {
	pool   pool
	tables Tables
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	tables, err := cfg.Tables.withDefaults()
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, tables: tables}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, tables Tables) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	t, err := tables.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, tables: t}, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	posted_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
)`, s.tables.Postings),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_source_created_idx ON %[1]s (source, created_at DESC)`, s.tables.Postings),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	job_url TEXT NOT NULL,
	error_type TEXT NOT NULL,
	field_name TEXT,
	message TEXT NOT NULL,
	snapshot_uri TEXT,
	created_at TIMESTAMPTZ NOT NULL
)`, s.tables.Errors),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_lookup_idx ON %[1]s (candidate_id, job_url, created_at DESC)`, s.tables.Errors),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	profile JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.tables.Candidates),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Package sqlite is a single-node store for postings, application errors and
// candidates backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const (
	defaultPostingLimit = 50
	defaultErrorLimit   = 10
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS postings (
	url TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	posted_at INTEGER,
	created_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS postings_source_created_idx ON postings (source, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS application_errors (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	job_url TEXT NOT NULL,
	error_type TEXT NOT NULL,
	field_name TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	snapshot_uri TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS application_errors_lookup_idx ON application_errors (candidate_id, job_url, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`,
}

// Store implements jobs.PostingStore, jobs.ErrorStore and
// jobs.CandidateStore on one SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertPostings writes the batch in one transaction; existing URLs are
// ignored.
func (s *Store) InsertPostings(ctx context.Context, postings []jobs.Posting) ([]jobs.Posting, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin postings tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO postings (url, title, company, location, description, source, posted_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare posting insert: %w", err)
	}
	defer stmt.Close()

	inserted := make([]jobs.Posting, 0, len(postings))
	for _, p := range postings {
		res, err := stmt.ExecContext(ctx, p.URL, p.Title, p.Company, p.Location, p.Description, p.Source,
			nullMillis(p.PostedAt), p.CreatedAt.UnixMilli())
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert posting %s: %w", p.URL, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			inserted = append(inserted, p)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit postings tx: %w", err)
	}
	return inserted, nil
}

// ListPostings returns postings newest first.
func (s *Store) ListPostings(ctx context.Context, filter jobs.PostingFilter) ([]jobs.Posting, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPostingLimit
	}
	var since int64
	if filter.Since != nil {
		since = filter.Since.UnixMilli()
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT title, company, location, description, url, source, posted_at, created_at
FROM postings
WHERE (? = '' OR source = ?) AND created_at >= ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, filter.Source, filter.Source, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []jobs.Posting
	for rows.Next() {
		var (
			p        jobs.Posting
			postedAt sql.NullInt64
			created  int64
		)
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &p.Description, &p.URL, &p.Source, &postedAt, &created); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		if postedAt.Valid {
			ts := time.UnixMilli(postedAt.Int64).UTC()
			p.PostedAt = &ts
		}
		p.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return out, nil
}

// RecordError inserts one error row.
func (s *Store) RecordError(ctx context.Context, r jobs.ErrorRecord) error {
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO application_errors (id, candidate_id, job_url, error_type, field_name, message, snapshot_uri, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CandidateID, r.JobURL, string(r.Type), r.FieldName, r.Message, r.SnapshotURI, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert application error: %w", err)
	}
	return nil
}

// ListErrors returns matching rows newest first.
func (s *Store) ListErrors(ctx context.Context, filter jobs.ErrorFilter) ([]jobs.ErrorRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultErrorLimit
	}
	appsOnly := 0
	if filter.ApplicationsOnly {
		appsOnly = 1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, candidate_id, job_url, error_type, field_name, message, snapshot_uri, created_at
FROM application_errors
WHERE (? = '' OR candidate_id = ?) AND (? = '' OR job_url = ?) AND (? = 0 OR candidate_id <> '')
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, filter.CandidateID, filter.CandidateID, filter.JobURL, filter.JobURL, appsOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list application errors: %w", err)
	}
	defer rows.Close()

	var out []jobs.ErrorRecord
	for rows.Next() {
		var (
			r       jobs.ErrorRecord
			errType string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.JobURL, &errType, &r.FieldName, &r.Message, &r.SnapshotURI, &created); err != nil {
			return nil, fmt.Errorf("scan application error: %w", err)
		}
		r.Type = jobs.ErrorType(errType)
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application errors: %w", err)
	}
	return out, nil
}

// GetCandidate loads a profile or returns jobs.ErrNotFound.
func (s *Store) GetCandidate(ctx context.Context, id string) (jobs.CandidateProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM candidates WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.CandidateProfile{}, jobs.ErrNotFound
	}
	if err != nil {
		return jobs.CandidateProfile{}, fmt.Errorf("get candidate: %w", err)
	}
	var c jobs.CandidateProfile
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return jobs.CandidateProfile{}, fmt.Errorf("decode candidate: %w", err)
	}
	c.ID = id
	return c, nil
}

// SaveCandidate upserts a profile.
func (s *Store) SaveCandidate(ctx context.Context, c jobs.CandidateProfile) error {
	if c.ID == "" {
		return fmt.Errorf("candidate id is required")
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode candidate: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO candidates (id, profile, updated_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		c.ID, string(raw), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save candidate: %w", err)
	}
	return nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

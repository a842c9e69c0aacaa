package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const defaultPostingLimit = 50

// InsertPostings writes the batch in one transaction. Rows whose URL already
// exists are skipped by the primary key, so concurrent writers cannot
// duplicate a posting.
func (s *Store) InsertPostings(ctx context.Context, postings []jobs.Posting) ([]jobs.Posting, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin postings tx: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (url, title, company, location, description, source, posted_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (url) DO NOTHING`, s.tables.Postings)

	inserted := make([]jobs.Posting, 0, len(postings))
	for _, p := range postings {
		tag, err := tx.Exec(ctx, query,
			p.URL, p.Title, p.Company, p.Location, p.Description, p.Source, p.PostedAt, p.CreatedAt)
		if err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("insert posting %s: %w", p.URL, err)
		}
		if tag.RowsAffected() == 1 {
			inserted = append(inserted, p)
		}
	}
	if err := tx.Commit(ctx); err != nil {
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
	var since any
	if filter.Since != nil {
		since = *filter.Since
	}
	query := fmt.Sprintf(`
SELECT title, company, location, description, url, source, posted_at, created_at
FROM %s
WHERE ($1 = '' OR source = $1) AND ($2::timestamptz IS NULL OR created_at >= $2)
ORDER BY created_at DESC
LIMIT $3`, s.tables.Postings)

	rows, err := s.pool.Query(ctx, query, filter.Source, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var out []jobs.Posting
	for rows.Next() {
		var (
			p        jobs.Posting
			postedAt *time.Time
		)
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &p.Description, &p.URL, &p.Source, &postedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.PostedAt = postedAt
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return out, nil
}

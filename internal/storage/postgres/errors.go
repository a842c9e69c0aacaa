package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const defaultErrorLimit = 10

// RecordError inserts one error row.
func (s *Store) RecordError(ctx context.Context, record jobs.ErrorRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, candidate_id, job_url, error_type, field_name, message, snapshot_uri, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,NULLIF($7,''),$8)`, s.tables.Errors)

	if _, err := s.pool.Exec(ctx, query,
		record.ID,
		record.CandidateID,
		record.JobURL,
		string(record.Type),
		record.FieldName,
		record.Message,
		record.SnapshotURI,
		record.CreatedAt,
	); err != nil {
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
	query := fmt.Sprintf(`
SELECT id, candidate_id, job_url, error_type, COALESCE(field_name, ''), message, COALESCE(snapshot_uri, ''), created_at
FROM %s
WHERE ($1 = '' OR candidate_id = $1) AND ($2 = '' OR job_url = $2) AND (NOT $3 OR candidate_id <> '')
ORDER BY created_at DESC
LIMIT $4`, s.tables.Errors)

	rows, err := s.pool.Query(ctx, query, filter.CandidateID, filter.JobURL, filter.ApplicationsOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list application errors: %w", err)
	}
	defer rows.Close()

	var out []jobs.ErrorRecord
	for rows.Next() {
		var (
			r       jobs.ErrorRecord
			errType string
		)
		if err := rows.Scan(&r.ID, &r.CandidateID, &r.JobURL, &errType, &r.FieldName, &r.Message, &r.SnapshotURI, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan application error: %w", err)
		}
		r.Type = jobs.ErrorType(errType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate application errors: %w", err)
	}
	return out, nil
}

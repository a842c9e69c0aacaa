package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// GetCandidate loads a profile or returns jobs.ErrNotFound.
func (s *Store) GetCandidate(ctx context.Context, id string) (jobs.CandidateProfile, error) {
	query := fmt.Sprintf(`SELECT profile FROM %s WHERE id = $1`, s.tables.Candidates)
	var raw []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return jobs.CandidateProfile{}, jobs.ErrNotFound
		}
		return jobs.CandidateProfile{}, fmt.Errorf("get candidate: %w", err)
	}
	var c jobs.CandidateProfile
	if err := json.Unmarshal(raw, &c); err != nil {
		return jobs.CandidateProfile{}, fmt.Errorf("decode candidate: %w", err)
	}
	c.ID = id
	return c, nil
}

// SaveCandidate upserts a profile.
func (s *Store) SaveCandidate(ctx context.Context, candidate jobs.CandidateProfile) error {
	if candidate.ID == "" {
		return fmt.Errorf("candidate id is required")
	}
	raw, err := json.Marshal(candidate)
	if err != nil {
		return fmt.Errorf("encode candidate: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, profile, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, updated_at = now()`, s.tables.Candidates)
	if _, err := s.pool.Exec(ctx, query, candidate.ID, raw); err != nil {
		return fmt.Errorf("save candidate: %w", err)
	}
	return nil
}

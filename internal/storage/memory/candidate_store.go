package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// CandidateStore keeps candidate profiles by ID.
type CandidateStore struct {
	mu         sync.RWMutex
	candidates map[string]jobs.CandidateProfile
}

// NewCandidateStore constructs a CandidateStore.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{candidates: make(map[string]jobs.CandidateProfile)}
}

// GetCandidate returns a copy of the stored profile or jobs.ErrNotFound.
func (s *CandidateStore) GetCandidate(_ context.Context, id string) (jobs.CandidateProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return jobs.CandidateProfile{}, jobs.ErrNotFound
	}
	return clone(c), nil
}

// SaveCandidate creates or replaces a profile.
func (s *CandidateStore) SaveCandidate(_ context.Context, candidate jobs.CandidateProfile) error {
	if candidate.ID == "" {
		return errors.New("candidate id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[candidate.ID] = clone(candidate)
	return nil
}

func clone(c jobs.CandidateProfile) jobs.CandidateProfile {
	c.Answers = maps.Clone(c.Answers)
	if c.Workday != nil {
		creds := *c.Workday
		c.Workday = &creds
	}
	return c
}

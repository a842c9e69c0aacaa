package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// DefaultErrorLimit caps ListErrors when the filter has no limit.
const DefaultErrorLimit = 10

// ErrorStore keeps application error records.
type ErrorStore struct {
	mu      sync.RWMutex
	records []jobs.ErrorRecord
}

// NewErrorStore constructs an ErrorStore.
func NewErrorStore() *ErrorStore {
	return &ErrorStore{}
}

// RecordError appends a record.
func (s *ErrorStore) RecordError(_ context.Context, record jobs.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// ListErrors returns matching records newest first.
func (s *ErrorStore) ListErrors(_ context.Context, filter jobs.ErrorFilter) ([]jobs.ErrorRecord, error) {
	s.mu.RLock()
	out := make([]jobs.ErrorRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if filter.CandidateID != "" && r.CandidateID != filter.CandidateID {
			continue
		}
		if filter.JobURL != "" && r.JobURL != filter.JobURL {
			continue
		}
		if filter.ApplicationsOnly && r.CandidateID == "" {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultErrorLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// DefaultListLimit caps ListPostings when the filter has no limit.
const DefaultListLimit = 50

// PostingStore keeps postings keyed by URL.
type PostingStore struct {
	mu       sync.RWMutex
	postings map[string]jobs.Posting
	order    []string
}

// NewPostingStore constructs a PostingStore.
func NewPostingStore() *PostingStore {
	return &PostingStore{postings: make(map[string]jobs.Posting)}
}

// InsertPostings adds postings whose URL is new and returns them. Existing
// URLs are left untouched.
func (s *PostingStore) InsertPostings(_ context.Context, postings []jobs.Posting) ([]jobs.Posting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := make([]jobs.Posting, 0, len(postings))
	for _, p := range postings {
		if _, exists := s.postings[p.URL]; exists {
			continue
		}
		s.postings[p.URL] = p
		s.order = append(s.order, p.URL)
		inserted = append(inserted, p)
	}
	return inserted, nil
}

// ListPostings returns postings newest first.
func (s *PostingStore) ListPostings(_ context.Context, filter jobs.PostingFilter) ([]jobs.Posting, error) {
	s.mu.RLock()
	out := make([]jobs.Posting, 0, len(s.order))
	for _, u := range s.order {
		p := s.postings[u]
		if filter.Source != "" && p.Source != filter.Source {
			continue
		}
		if filter.Since != nil && p.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()

	// order is insertion order; reverse it so ties on CreatedAt stay newest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored postings.
func (s *PostingStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postings)
}

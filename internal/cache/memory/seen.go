// Package memory is an in-process SeenSet with optional expiry.
package memory

import (
	"context"
	"sync"
	"time"
)

// SeenSet remembers keys until their TTL passes. A zero TTL never expires.
type SeenSet struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]time.Time
	now  func() time.Time
}

// New builds a SeenSet.
func New(ttl time.Duration) *SeenSet {
	return &SeenSet{ttl: ttl, keys: make(map[string]time.Time), now: time.Now}
}

// Seen reports whether key was marked and has not expired.
func (s *SeenSet) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.keys[key]
	if !ok {
		return false, nil
	}
	if !exp.IsZero() && !s.now().Before(exp) {
		delete(s.keys, key)
		return false, nil
	}
	return true, nil
}

// Mark records keys.
func (s *SeenSet) Mark(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}
	for _, k := range keys {
		s.keys[k] = exp
	}
	return nil
}

package fetcher

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// RetryPolicy retries transient outcomes with jittered exponential backoff.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a policy from the fetcher config.
func NewRetryPolicy(cfg Config) *RetryPolicy {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &RetryPolicy{
		maxAttempts: attempts,
		baseDelay:   cfg.BackoffInitial,
		maxDelay:    cfg.BackoffMax,
	}
}

// MaxAttempts is the upper bound on calls per logical fetch.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry reports whether another attempt is allowed after `attempt`
// completed calls. Only transient outcomes are retried; blocked responses
// never are.
func (p *RetryPolicy) ShouldRetry(outcome jobs.FetchOutcome, err error, attempt int) bool {
	if outcome != jobs.FetchTransient {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	if p.baseDelay <= 0 {
		return 0
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if p.maxDelay > 0 && delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomDuration(half)
}

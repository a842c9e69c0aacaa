// Package ratelimit implements per-host politeness for outbound fetches:
// token buckets, Retry-After cool-downs, and a short-lived blocklist for hosts
// that keep refusing us.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
	// HostRPS overrides DefaultRPS for specific hostnames.
	HostRPS map[string]float64
	// BlockThreshold is the number of refusals before a host is skipped.
	BlockThreshold int
	// BlockTTL is how long a host stays skipped.
	BlockTTL time.Duration
}

// Limiter manages per-host rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	cooldowns    map[string]time.Time
	refusals     map[string]int
	blocked      map[string]time.Time
	hostRates    map[string]rate.Limit
	defaultRate  rate.Limit
	defaultBurst int
	threshold    int
	blockTTL     time.Duration
	now          func() time.Time
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	threshold := cfg.BlockThreshold
	if threshold <= 0 {
		threshold = 3
	}
	ttl := cfg.BlockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	hostRates := make(map[string]rate.Limit, len(cfg.HostRPS))
	for host, rps := range cfg.HostRPS {
		if rps > 0 {
			hostRates[strings.ToLower(host)] = rate.Limit(rps)
		}
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		cooldowns:    make(map[string]time.Time),
		refusals:     make(map[string]int),
		blocked:      make(map[string]time.Time),
		hostRates:    hostRates,
		defaultRate:  r,
		defaultBurst: burst,
		threshold:    threshold,
		blockTTL:     ttl,
		now:          time.Now,
	}
}

// Wait blocks until a token is available for the URL's host, respecting any
// cool-down set by Penalize.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limit := l.defaultRate
		if hr, ok := l.hostRates[host]; ok {
			limit = hr
		}
		limiter = rate.NewLimiter(limit, l.defaultBurst)
		l.limiters[host] = limiter
	}
	until := l.cooldowns[host]
	l.mu.Unlock()

	start := time.Now()
	if delay := until.Sub(l.now()); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limit cool-down: %w", ctx.Err())
		case <-timer.C:
		}
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}

// Penalize delays the next request to the URL's host by at least d.
func (l *Limiter) Penalize(rawURL string, d time.Duration) {
	if d <= 0 {
		return
	}
	host := hostOf(rawURL)
	until := l.now().Add(d)
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.cooldowns[host]) {
		l.cooldowns[host] = until
	}
}

// MarkRefused records a 403/429 from the URL's host and reports whether the
// host is now blocked.
func (l *Limiter) MarkRefused(rawURL string) bool {
	host := hostOf(rawURL)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refusals[host]++
	if l.refusals[host] >= l.threshold {
		l.blocked[host] = l.now().Add(l.blockTTL)
		l.refusals[host] = 0
		return true
	}
	return false
}

// IsBlocked reports whether requests to the URL's host should be skipped.
func (l *Limiter) IsBlocked(rawURL string) bool {
	host := hostOf(rawURL)
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.blocked[host]
	if !ok {
		return false
	}
	if l.now().After(until) {
		delete(l.blocked, host)
		return false
	}
	return true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

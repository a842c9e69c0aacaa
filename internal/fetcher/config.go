// Package fetcher holds the transport-independent parts of outbound fetching:
// configuration, outcome classification and the retry policy.
package fetcher

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/http"
	"time"
)

// Config is passed to every fetcher at construction. There is no process-wide
// session state.
type Config struct {
	UserAgents     []string
	HeaderProfiles []http.Header
	Timeout        time.Duration
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	JitterMin      time.Duration
	JitterMax      time.Duration
}

// DefaultUserAgents rotate across calls.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

// DefaultHeaderProfiles are small, internally consistent header sets.
// Accept-Encoding is left to the transport so bodies are decompressed.
func DefaultHeaderProfiles() []http.Header {
	return []http.Header{
		{
			"Accept":                    {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language":           {"en-US,en;q=0.5"},
			"Dnt":                       {"1"},
			"Upgrade-Insecure-Requests": {"1"},
		},
		{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
			"Accept-Language": {"en-GB,en;q=0.9"},
			"Cache-Control":   {"no-cache"},
		},
		{
			"Accept":          {"*/*"},
			"Accept-Language": {"en-US,en;q=0.9"},
			"Sec-Fetch-Mode":  {"navigate"},
		},
	}
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		UserAgents:     DefaultUserAgents,
		HeaderProfiles: DefaultHeaderProfiles(),
		Timeout:        10 * time.Second,
		MaxAttempts:    3,
		BackoffInitial: 250 * time.Millisecond,
		BackoffMax:     5 * time.Second,
		JitterMin:      50 * time.Millisecond,
		JitterMax:      300 * time.Millisecond,
	}
}

// WithDefaults fills zero-valued required fields. Jitter and backoff are left
// alone so callers can disable them.
func (c Config) WithDefaults() Config {
	if len(c.UserAgents) == 0 {
		c.UserAgents = DefaultUserAgents
	}
	if len(c.HeaderProfiles) == 0 {
		c.HeaderProfiles = DefaultHeaderProfiles()
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.JitterMax < c.JitterMin {
		c.JitterMax = c.JitterMin
	}
	return c
}

// Jitter returns a random delay within [JitterMin, JitterMax].
func (c Config) Jitter() time.Duration {
	span := c.JitterMax - c.JitterMin
	if span <= 0 {
		return c.JitterMin
	}
	return c.JitterMin + randomDuration(span)
}

// Pause sleeps for delay or until ctx is done.
func Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func randomDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// Package collyfetcher implements jobs.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/fetcher"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// HostPolicy is the politeness hook consulted around every attempt.
// *ratelimit.Limiter satisfies it.
type HostPolicy interface {
	Wait(ctx context.Context, rawURL string) error
	Penalize(rawURL string, d time.Duration)
	MarkRefused(rawURL string) bool
	IsBlocked(rawURL string) bool
}

// Config controls collector behavior.
type Config struct {
	fetcher.Config
	RespectRobots bool
}

// Fetcher implements jobs.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	retry         *fetcher.RetryPolicy
	policy        HostPolicy
	baseCollector *colly.Collector
	rotation      atomic.Uint64
	pause         func(context.Context, time.Duration)
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// attempt captures one HTTP exchange.
type attempt struct {
	status   int
	headers  http.Header
	body     []byte
	finalURL string
	err      error
}

// New builds a Fetcher. policy may be nil.
func New(cfg Config, policy HostPolicy, logger *zap.Logger) *Fetcher {
	cfg.Config = cfg.Config.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(newHTTPTransport())
	// Clones share the underlying http.Client.
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		retry:         fetcher.NewRetryPolicy(cfg.Config),
		policy:        policy,
		baseCollector: c,
		pause:         fetcher.Pause,
		logger:        logger,
	}
}

// Fetch performs one logical GET. It never returns an error; the outcome is
// carried in the result.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) jobs.FetchResult {
	start := time.Now()
	result := jobs.FetchResult{URL: rawURL}
	defer func() {
		result.Duration = time.Since(start)
		metrics.ObserveFetch(rawURL, string(result.Outcome), result.Attempts)
	}()

	if u, err := url.ParseRequestURI(rawURL); err != nil || u.Host == "" {
		result.Outcome = jobs.FetchFatal
		result.Err = fmt.Errorf("invalid url %q", rawURL)
		return result
	}
	if f.policy != nil && f.policy.IsBlocked(rawURL) {
		result.Outcome = jobs.FetchBlocked
		result.Err = fetcher.ErrHostBlocked
		return result
	}

	for {
		f.pause(ctx, f.cfg.Jitter())
		if f.policy != nil {
			if err := f.policy.Wait(ctx, rawURL); err != nil {
				result.Outcome = jobs.FetchTransient
				result.Err = err
				return result
			}
		}

		a := f.do(ctx, rawURL)
		result.Attempts++
		result.StatusCode = a.status
		result.Headers = a.headers
		result.Body = a.body
		result.FinalURL = a.finalURL
		result.Err = a.err
		result.Outcome = f.classify(a)

		if result.Outcome == jobs.FetchBlocked && f.policy != nil {
			f.policy.MarkRefused(rawURL)
			f.policy.Penalize(rawURL, fetcher.RetryAfter(a.headers, time.Now()))
		}
		if !f.retry.ShouldRetry(result.Outcome, a.err, result.Attempts) || ctx.Err() != nil {
			break
		}
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", result.Attempts),
			zap.Int("status", a.status),
			zap.Error(a.err),
		)
		f.pause(ctx, f.retry.Backoff(result.Attempts-1))
	}

	if result.Outcome != jobs.FetchSuccess && result.Err == nil {
		result.Err = fmt.Errorf("unexpected status %d", result.StatusCode)
	}
	return result
}

func (f *Fetcher) classify(a attempt) jobs.FetchOutcome {
	if errors.Is(a.err, colly.ErrRobotsTxtBlocked) {
		return jobs.FetchFatal
	}
	return fetcher.Classify(a.status, a.err)
}

func (f *Fetcher) do(ctx context.Context, rawURL string) attempt {
	a := &attempt{}
	collector := f.buildCollector(a)
	canceled, err := f.runCollector(ctx, collector, rawURL)
	if canceled {
		// The visit goroutine may still write into a.
		return attempt{err: err}
	}
	if err != nil && a.err == nil {
		a.err = err
	}
	return *a
}

func (f *Fetcher) buildCollector(a *attempt) *colly.Collector {
	collector := f.baseCollector.Clone()
	n := f.rotation.Add(1) - 1
	collector.UserAgent = f.cfg.UserAgents[n%uint64(len(f.cfg.UserAgents))]
	profile := f.cfg.HeaderProfiles[n%uint64(len(f.cfg.HeaderProfiles))]
	f.configureCollectorHooks(collector, profile, a)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, profile http.Header, a *attempt) {
	hooks.OnRequest(func(r *colly.Request) {
		for key, values := range profile {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		a.status = r.StatusCode
		if r.Headers != nil {
			a.headers = r.Headers.Clone()
		}
		a.body = append([]byte(nil), r.Body...)
		if r.Request != nil && r.Request.URL != nil {
			a.finalURL = r.Request.URL.String()
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			a.status = r.StatusCode
		}
		a.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string) (bool, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()

	select {
	case <-ctx.Done():
		return true, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return false, fmt.Errorf("colly visit failed: %w", err)
		}
		return false, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

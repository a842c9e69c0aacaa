// Package browser runs headless Chrome through chromedp: exclusive sessions
// for application workflows and one-shot renders for JavaScript-heavy listing
// pages.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/apply"
	"github.com/JakeFAU/jobswipe/internal/fetcher"
	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Config controls the browser pool.
type Config struct {
	// MaxParallel bounds concurrently open tabs, sessions and renders alike.
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

// Launcher owns one Chrome process and hands out tabs.
type Launcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewChromedp starts an allocator. Chrome itself launches lazily with the
// first tab.
func NewChromedp(cfg Config, logger *zap.Logger) (*Launcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Launcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger.Named("browser"),
	}, nil
}

// Close shuts Chrome down.
func (l *Launcher) Close() {
	l.allocCancel()
}

// NewSession opens a fresh tab. It blocks for a free slot until ctx ends.
func (l *Launcher) NewSession(ctx context.Context) (apply.Session, error) {
	if err := l.acquire(ctx); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(l.allocator)
	// The first Run creates the target.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		l.release()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Page{
		tab:        tabCtx,
		cancel:     tabCancel,
		release:    l.release,
		navTimeout: l.navTimeout(),
		logger:     l.logger,
	}, nil
}

// Render loads url in a throwaway tab and returns the rendered DOM. It
// implements the DOM adapter's renderer.
func (l *Launcher) Render(ctx context.Context, url string) jobs.FetchResult {
	res := jobs.FetchResult{URL: url, Attempts: 1}
	if err := l.acquire(ctx); err != nil {
		res.Outcome, res.Err = jobs.FetchTransient, err
		return res
	}
	defer l.release()

	taskCtx, taskCancel := chromedp.NewContext(l.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, l.navTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := l.runHeadless(taskCtx, url)
	res.Duration = time.Since(start)
	if err != nil {
		res.Outcome, res.Err = fetcher.Classify(0, err), err
		l.logger.Debug("render failed", zap.String("url", url), zap.Error(err))
		return res
	}

	status, headers, responseURL := meta.snapshotWithFallbacks(url, finalURL)
	res.StatusCode = status
	res.Headers = headers
	res.FinalURL = responseURL
	res.Body = []byte(html)
	res.Outcome = fetcher.Classify(status, nil)
	return res
}

func (l *Launcher) runHeadless(ctx context.Context, url string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		l.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (l *Launcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if l.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(l.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (l *Launcher) acquire(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	select {
	case l.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (l *Launcher) release() {
	if l.limiter == nil {
		return
	}
	select {
	case <-l.limiter:
	default:
	}
}

func (l *Launcher) navTimeout() time.Duration {
	if l.cfg.NavigationTimeout > 0 {
		return l.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

type responseMeta struct {
	mu      sync.RWMutex
	status  int
	headers http.Header
	url     string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: http.Header{}}
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range event.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.headers = headers
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

// snapshotWithFallbacks returns the captured document response, defaulting
// the status to 200 and the URL to the final or requested one.
func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, http.Header, string) {
	m.mu.RLock()
	status, headers, url := m.status, m.headers.Clone(), m.url
	m.mu.RUnlock()
	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers, url
}

// Package source contains the pieces shared by posting adapters: mirror
// fallback, per-source caps, the target-role recognizer, placeholder
// discarding and the "first non-empty wins" extraction combinator.
package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// DefaultCap bounds the records one adapter run may emit.
const DefaultCap = 30

// PageFunc fetches and parses one candidate URL.
type PageFunc func(ctx context.Context, pageURL string) ([]jobs.RawRecord, error)

// Base carries the behavior every adapter shares.
type Base struct {
	Name       string
	Tag        string
	URLs       []string
	Cap        int
	Recognizer *Recognizer
	Fetcher    jobs.Fetcher
	Logger     *zap.Logger
}

func (b Base) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b Base) cap() int {
	if b.Cap <= 0 {
		return DefaultCap
	}
	return b.Cap
}

// Collect tries URLs in order and returns the accepted records of the first
// URL that yields any. Fetch and parse failures are logged and treated as an
// empty page.
func (b Base) Collect(ctx context.Context, page PageFunc) []jobs.RawRecord {
	log := b.logger()
	for _, u := range b.URLs {
		if ctx.Err() != nil {
			return nil
		}
		raws, err := safePage(ctx, page, u)
		if err != nil {
			log.Warn("source page failed", zap.String("url", u), zap.Error(err))
			continue
		}
		accepted := b.Accept(raws, u)
		if len(accepted) > 0 {
			log.Debug("source page accepted",
				zap.String("url", u),
				zap.Int("parsed", len(raws)),
				zap.Int("accepted", len(accepted)),
			)
			return accepted
		}
		log.Debug("source page yielded nothing", zap.String("url", u), zap.Int("parsed", len(raws)))
	}
	return nil
}

// Accept drops placeholder and non-target records, stamps the source tag and
// base URL, and applies the cap.
func (b Base) Accept(raws []jobs.RawRecord, pageURL string) []jobs.RawRecord {
	limit := b.cap()
	out := make([]jobs.RawRecord, 0, min(len(raws), limit))
	for _, raw := range raws {
		if len(out) >= limit {
			break
		}
		if Discardable(raw) {
			continue
		}
		if b.Recognizer != nil && !b.Recognizer.Match(raw.Title) {
			continue
		}
		if raw.Source == "" {
			raw.Source = b.Tag
		}
		if raw.BaseURL == "" {
			raw.BaseURL = pageURL
		}
		out = append(out, raw)
	}
	return out
}

// FetchBody fetches pageURL and converts a non-success outcome into an error.
// The second return value is the final URL after redirects.
func (b Base) FetchBody(ctx context.Context, pageURL string) ([]byte, string, error) {
	if b.Fetcher == nil {
		return nil, "", fmt.Errorf("source %s has no fetcher", b.Name)
	}
	res := b.Fetcher.Fetch(ctx, pageURL)
	if !res.OK() {
		return nil, "", fmt.Errorf("fetch %s: %s after %d attempt(s): %w", pageURL, res.Outcome, res.Attempts, res.Err)
	}
	final := res.FinalURL
	if final == "" {
		final = pageURL
	}
	return res.Body, final, nil
}

// Discardable reports records whose title or company is missing or a
// placeholder.
func Discardable(raw jobs.RawRecord) bool {
	title := strings.TrimSpace(raw.Title)
	company := strings.TrimSpace(raw.Company)
	return title == "" || company == "" ||
		strings.EqualFold(title, jobs.PlaceholderTitle) ||
		strings.EqualFold(company, jobs.PlaceholderCompany)
}

func safePage(ctx context.Context, page PageFunc, u string) (raws []jobs.RawRecord, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse panic: %v", rec)
		}
	}()
	return page(ctx, u)
}

// Package dom scrapes job boards and career pages rendered as HTML cards.
package dom

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

// Renderer loads a page in a browser and returns the rendered HTML.
type Renderer interface {
	Render(ctx context.Context, url string) jobs.FetchResult
}

// Promoter decides whether a static response should be re-fetched through
// the renderer.
type Promoter interface {
	ShouldPromote(res jobs.FetchResult) bool
}

// Config describes one HTML source.
type Config struct {
	// Cards is a selector cascade; the first selector with matches wins.
	Cards  []string
	Fields source.FieldCascade
	// Company, when set, is used for cards whose company cannot be found.
	Company string
}

// Adapter extracts cards from HTML pages.
type Adapter struct {
	base     source.Base
	cfg      Config
	renderer Renderer
	promoter Promoter
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithRenderer enables headless promotion for pages that yield no cards and
// that p considers client-rendered. A nil p promotes every empty page.
func WithRenderer(r Renderer, p Promoter) Option {
	return func(a *Adapter) {
		a.renderer = r
		a.promoter = p
	}
}

// New builds a DOM adapter.
func New(base source.Base, cfg Config, opts ...Option) *Adapter {
	a := &Adapter{base: base, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name implements jobs.Adapter.
func (a *Adapter) Name() string { return a.base.Name }

// FetchPostings implements jobs.Adapter.
func (a *Adapter) FetchPostings(ctx context.Context) ([]jobs.RawRecord, error) {
	return a.base.Collect(ctx, a.page), nil
}

func (a *Adapter) page(ctx context.Context, pageURL string) ([]jobs.RawRecord, error) {
	if a.base.Fetcher == nil {
		return nil, fmt.Errorf("source %s has no fetcher", a.base.Name)
	}
	res := a.base.Fetcher.Fetch(ctx, pageURL)
	var records []jobs.RawRecord
	if res.OK() {
		parsed, err := a.Parse(res.Body)
		if err != nil {
			return nil, err
		}
		records = parsed
	}
	if len(records) > 0 || !a.promote(res) {
		if !res.OK() {
			return nil, fmt.Errorf("fetch %s: %s: %w", pageURL, res.Outcome, res.Err)
		}
		return records, nil
	}

	a.logger().Debug("promoting page to headless render", zap.String("url", pageURL))
	rendered := a.renderer.Render(ctx, pageURL)
	if !rendered.OK() {
		return nil, fmt.Errorf("render %s: %s: %w", pageURL, rendered.Outcome, rendered.Err)
	}
	return a.Parse(rendered.Body)
}

func (a *Adapter) promote(res jobs.FetchResult) bool {
	if a.renderer == nil || !res.OK() {
		return false
	}
	return a.promoter == nil || a.promoter.ShouldPromote(res)
}

// Parse extracts one raw record per card.
func (a *Adapter) Parse(body []byte) ([]jobs.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	cards := source.SelectCards(doc.Selection, a.cfg.Cards)
	out := make([]jobs.RawRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		raw := a.cfg.Fields.Extract(card)
		if raw.Company == jobs.PlaceholderCompany && a.cfg.Company != "" {
			raw.Company = a.cfg.Company
		}
		out = append(out, raw)
	})
	return out, nil
}

func (a *Adapter) logger() *zap.Logger {
	if a.base.Logger == nil {
		return zap.NewNop()
	}
	return a.base.Logger
}

// Package feed reads RSS and Atom job feeds.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

// Config tunes how items map onto records.
type Config struct {
	// Company is used when the item carries none.
	Company string
	// TitleSeparator splits "Company: Title" style item titles. Empty
	// disables splitting.
	TitleSeparator string
}

// Adapter parses feeds with gofeed.
type Adapter struct {
	base   source.Base
	cfg    Config
	parser *gofeed.Parser
}

// New builds a feed adapter.
func New(base source.Base, cfg Config) *Adapter {
	return &Adapter{base: base, cfg: cfg, parser: gofeed.NewParser()}
}

// Name implements jobs.Adapter.
func (a *Adapter) Name() string { return a.base.Name }

// FetchPostings implements jobs.Adapter.
func (a *Adapter) FetchPostings(ctx context.Context) ([]jobs.RawRecord, error) {
	return a.base.Collect(ctx, func(ctx context.Context, u string) ([]jobs.RawRecord, error) {
		body, _, err := a.base.FetchBody(ctx, u)
		if err != nil {
			return nil, err
		}
		return a.Parse(body)
	}), nil
}

// Parse maps feed items to raw records.
func (a *Adapter) Parse(body []byte) ([]jobs.RawRecord, error) {
	parsed, err := a.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	out := make([]jobs.RawRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		company := ""
		if sep := a.cfg.TitleSeparator; sep != "" {
			if left, right, ok := strings.Cut(title, sep); ok {
				company = strings.TrimSpace(left)
				title = strings.TrimSpace(right)
			}
		}
		if company == "" && item.Author != nil {
			company = strings.TrimSpace(item.Author.Name)
		}
		if company == "" {
			company = a.cfg.Company
		}
		if company == "" {
			company = jobs.PlaceholderCompany
		}
		if title == "" {
			title = jobs.PlaceholderTitle
		}

		raw := jobs.RawRecord{
			Title:       title,
			Company:     company,
			URL:         strings.TrimSpace(item.Link),
			Description: stripHTML(item.Description),
		}
		if region, ok := item.Custom["region"]; ok {
			raw.Location = region
		}
		switch {
		case item.PublishedParsed != nil:
			raw.PostedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
		case item.UpdatedParsed != nil:
			raw.PostedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		out = append(out, raw)
	}
	return out, nil
}

func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

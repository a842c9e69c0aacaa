// Package jsonapi reads job boards and careers endpoints that return JSON.
// Field lookups accept dotted paths ("location.name") and fall through a
// list of candidate keys so one adapter fits several board schemas.
package jsonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

// Default key cascades cover Greenhouse, Lever and most ad-hoc APIs.
var (
	DefaultItemsKeys       = []string{"jobs", "data", "results", "items", "postings", "positions"}
	DefaultTitleKeys       = []string{"title", "text", "name", "position"}
	DefaultCompanyKeys     = []string{"company", "company_name", "companyName", "organization", "employer.name"}
	DefaultLocationKeys    = []string{"location.name", "location", "categories.location", "city"}
	DefaultURLKeys         = []string{"absolute_url", "hostedUrl", "applyUrl", "apply_url", "url", "link"}
	DefaultDescriptionKeys = []string{"descriptionPlain", "description", "content", "summary"}
	DefaultPostedKeys      = []string{"updated_at", "published_at", "createdAt", "created_at", "date_posted", "posted_at"}
)

// Config selects items and fields from a JSON document.
type Config struct {
	ItemsKeys       []string
	TitleKeys       []string
	CompanyKeys     []string
	LocationKeys    []string
	URLKeys         []string
	DescriptionKeys []string
	PostedKeys      []string
	// Company is used when no company key resolves, as on single-employer
	// careers endpoints.
	Company string
}

func (c Config) withDefaults() Config {
	fill := func(dst *[]string, def []string) {
		if len(*dst) == 0 {
			*dst = def
		}
	}
	fill(&c.ItemsKeys, DefaultItemsKeys)
	fill(&c.TitleKeys, DefaultTitleKeys)
	fill(&c.CompanyKeys, DefaultCompanyKeys)
	fill(&c.LocationKeys, DefaultLocationKeys)
	fill(&c.URLKeys, DefaultURLKeys)
	fill(&c.DescriptionKeys, DefaultDescriptionKeys)
	fill(&c.PostedKeys, DefaultPostedKeys)
	return c
}

// Adapter parses JSON listings.
type Adapter struct {
	base source.Base
	cfg  Config
}

// New builds a JSON adapter.
func New(base source.Base, cfg Config) *Adapter {
	return &Adapter{base: base, cfg: cfg.withDefaults()}
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

// Parse decodes body and maps every item.
func (a *Adapter) Parse(body []byte) ([]jobs.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	items := a.items(doc)
	out := make([]jobs.RawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw := jobs.RawRecord{
			Title:       lookupString(obj, a.cfg.TitleKeys),
			Company:     lookupString(obj, a.cfg.CompanyKeys),
			Location:    lookupString(obj, a.cfg.LocationKeys),
			URL:         lookupString(obj, a.cfg.URLKeys),
			Description: lookupString(obj, a.cfg.DescriptionKeys),
			PostedAt:    lookupTime(obj, a.cfg.PostedKeys),
		}
		if raw.Title == "" {
			raw.Title = jobs.PlaceholderTitle
		}
		if raw.Company == "" {
			raw.Company = a.cfg.Company
		}
		if raw.Company == "" {
			raw.Company = jobs.PlaceholderCompany
		}
		out = append(out, raw)
	}
	return out, nil
}

func (a *Adapter) items(doc any) []any {
	switch v := doc.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range a.cfg.ItemsKeys {
			if list, ok := lookup(v, key).([]any); ok {
				return list
			}
		}
	}
	return nil
}

func lookup(obj map[string]any, path string) any {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func lookupString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := lookup(obj, key).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// lookupTime returns the first timestamp-like value as text. Numbers are
// treated as unix seconds or milliseconds and rendered as RFC 3339.
func lookupTime(obj map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := lookup(obj, key).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			n, err := strconv.ParseInt(v.String(), 10, 64)
			if err != nil || n <= 0 {
				continue
			}
			var ts time.Time
			if n > 1e12 {
				ts = time.UnixMilli(n)
			} else {
				ts = time.Unix(n, 0)
			}
			return ts.UTC().Format(time.RFC3339)
		}
	}
	return ""
}

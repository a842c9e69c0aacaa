package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Strategy extracts one value from a DOM node, or "" when it cannot.
type Strategy func(s *goquery.Selection) string

// Text reads the trimmed text of the first match of selector. An empty
// selector reads the node itself.
func Text(selector string) Strategy {
	return func(s *goquery.Selection) string {
		target := s
		if selector != "" {
			target = s.Find(selector).First()
		}
		return strings.TrimSpace(target.Text())
	}
}

// Attr reads attr from the first match of selector. An empty selector reads
// the node itself.
func Attr(selector, attr string) Strategy {
	return func(s *goquery.Selection) string {
		target := s
		if selector != "" {
			target = s.Find(selector).First()
		}
		v, _ := target.Attr(attr)
		return strings.TrimSpace(v)
	}
}

// Const always yields value.
func Const(value string) Strategy {
	return func(*goquery.Selection) string { return value }
}

// FirstNonEmpty evaluates strategies in order and returns the first non-empty
// result.
func FirstNonEmpty(s *goquery.Selection, strategies ...Strategy) string {
	for _, strategy := range strategies {
		if strategy == nil {
			continue
		}
		if v := strategy(s); v != "" {
			return v
		}
	}
	return ""
}

// FieldCascade lists, per field, the ordered strategies tried on a card.
type FieldCascade struct {
	Title       []Strategy
	Company     []Strategy
	Location    []Strategy
	URL         []Strategy
	Description []Strategy
	PostedAt    []Strategy
}

// Extract builds a raw record from one card. Missing titles and companies
// become explicit placeholders so the record can be discarded by Accept.
func (c FieldCascade) Extract(s *goquery.Selection) jobs.RawRecord {
	raw := jobs.RawRecord{
		Title:       FirstNonEmpty(s, c.Title...),
		Company:     FirstNonEmpty(s, c.Company...),
		Location:    FirstNonEmpty(s, c.Location...),
		URL:         FirstNonEmpty(s, c.URL...),
		Description: FirstNonEmpty(s, c.Description...),
		PostedAt:    FirstNonEmpty(s, c.PostedAt...),
	}
	if raw.Title == "" {
		raw.Title = jobs.PlaceholderTitle
	}
	if raw.Company == "" {
		raw.Company = jobs.PlaceholderCompany
	}
	return raw
}

// SelectCards returns the matches of the first selector that matches
// anything.
func SelectCards(doc *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if found := doc.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return doc.Find("__no_match__")
}

// Package normalize converts adapter output into canonical postings.
package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

var (
	// ErrMissingField marks a record without a title, company or URL.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidURL marks a record whose URL is not an absolute http(s) URL
	// after resolution.
	ErrInvalidURL = errors.New("invalid posting url")
)

// UnknownSource tags records that reached the normalizer without a source.
const UnknownSource = "unknown"

// Normalize cleans raw into a Posting. It performs no I/O; now anchors
// relative ages ("3d") and dates without a year ("Oct 01"). CreatedAt is
// left zero for the writer to stamp.
func Normalize(raw jobs.RawRecord, now time.Time) (jobs.Posting, error) {
	p := jobs.Posting{
		Title:       CleanText(raw.Title),
		Company:     CleanText(raw.Company),
		Location:    CleanLocation(raw.Location),
		Description: CleanText(raw.Description),
		Source:      CleanText(raw.Source),
	}
	switch {
	case p.Title == "" || p.Title == jobs.PlaceholderTitle:
		return jobs.Posting{}, fmt.Errorf("%w: title", ErrMissingField)
	case p.Company == "" || p.Company == jobs.PlaceholderCompany:
		return jobs.Posting{}, fmt.Errorf("%w: company", ErrMissingField)
	case strings.TrimSpace(raw.URL) == "":
		return jobs.Posting{}, fmt.Errorf("%w: url", ErrMissingField)
	}

	abs, err := Resolve(raw.BaseURL, raw.URL)
	if err != nil {
		return jobs.Posting{}, err
	}
	canonical, err := CanonicalURL(abs)
	if err != nil {
		return jobs.Posting{}, err
	}
	p.URL = canonical

	if p.Location == "" {
		p.Location = jobs.DefaultLocation
	}
	if p.Source == "" {
		p.Source = UnknownSource
	}
	if ts, ok := ParsePostedAt(raw.PostedAt, now); ok {
		p.PostedAt = &ts
	}
	return p, nil
}

// CleanText replaces non-breaking spaces and collapses whitespace.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// CleanLocation strips "Location:" prefixes and drops repeated parts.
func CleanLocation(loc string) string {
	loc = CleanText(loc)
	for _, prefix := range []string{"Location:", "Locations:", "LOCATION:", "LOCATIONS:"} {
		loc = strings.TrimPrefix(loc, prefix)
	}
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return ""
	}
	parts := strings.Split(loc, ";")
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = CleanText(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return strings.Join(out, "; ")
}

// Resolve makes ref absolute against base.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !r.IsAbs() && base != "" {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return "", fmt.Errorf("%w: base: %v", ErrInvalidURL, err)
		}
		r = b.ResolveReference(r)
	}
	if r.Scheme != "http" && r.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, ref)
	}
	if r.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, ref)
	}
	return r.String(), nil
}

// CanonicalURL lowercases scheme and host, drops default ports, fragments
// and utm_* tracking parameters, and sorts the query so equal postings share
// one key.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawFragment = ""
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

var relativeAge = regexp.MustCompile(`^(\d+)\s*(h|d|w|mo|y)\+?$`)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var yearlessLayouts = []string{"Jan 02", "Jan 2", "January 2"}

// ParsePostedAt understands absolute dates, yearless "Oct 01" dates (the
// most recent such day not after now) and relative ages such as "3d", "2w"
// or "1mo". The result is UTC.
func ParsePostedAt(raw string, now time.Time) (time.Time, bool) {
	s := CleanText(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	now = now.UTC()
	for _, layout := range yearlessLayouts {
		ts, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		ts = time.Date(now.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if ts.After(now) {
			ts = ts.AddDate(-1, 0, 0)
		}
		return ts, true
	}
	if m := relativeAge.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch m[2] {
		case "h":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "d":
			return now.AddDate(0, 0, -n), true
		case "w":
			return now.AddDate(0, 0, -7*n), true
		case "mo":
			return now.AddDate(0, -n, 0), true
		case "y":
			return now.AddDate(-n, 0, 0), true
		}
	}
	return time.Time{}, false
}

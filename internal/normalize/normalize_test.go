package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

var now = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func TestNormalizeCleansAndResolves(t *testing.T) {
	t.Parallel()

	p, err := Normalize(jobs.RawRecord{
		Title:    "  Software Engineering   Intern ",
		Company:  "Acme\n",
		URL:      "/jobs/1?b=2&a=1&utm_source=gh#apply",
		BaseURL:  "HTTPS://Careers.Acme.example:443/list",
		PostedAt: "2026-10-01",
		Source:   "Career-Acme",
	}, now)
	require.NoError(t, err)
	require.Equal(t, "Software Engineering Intern", p.Title)
	require.Equal(t, "Acme", p.Company)
	require.Equal(t, "https://careers.acme.example/jobs/1?a=1&b=2", p.URL)
	require.Equal(t, jobs.DefaultLocation, p.Location)
	require.Empty(t, p.Description)
	require.Equal(t, "Career-Acme", p.Source)
	require.NotNil(t, p.PostedAt)
	require.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), *p.PostedAt)
	require.True(t, p.CreatedAt.IsZero())
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	t.Parallel()

	base := jobs.RawRecord{Title: "Intern", Company: "Acme", URL: "https://acme.example/1"}
	cases := map[string]func(r *jobs.RawRecord){
		"title":             func(r *jobs.RawRecord) { r.Title = " " },
		"placeholder title": func(r *jobs.RawRecord) { r.Title = jobs.PlaceholderTitle },
		"company":           func(r *jobs.RawRecord) { r.Company = "" },
		"placeholder co":    func(r *jobs.RawRecord) { r.Company = jobs.PlaceholderCompany },
		"url":               func(r *jobs.RawRecord) { r.URL = "" },
	}
	for name, mutate := range cases {
		raw := base
		mutate(&raw)
		_, err := Normalize(raw, now)
		require.ErrorIs(t, err, ErrMissingField, name)
	}
}

func TestNormalizeRejectsInvalidURLs(t *testing.T) {
	t.Parallel()

	for _, ref := range []string{"mailto:jobs@acme.example", "javascript:void(0)", "/relative/without/base", "http://"} {
		_, err := Normalize(jobs.RawRecord{Title: "Intern", Company: "Acme", URL: ref}, now)
		require.ErrorIs(t, err, ErrInvalidURL, ref)
	}
}

func TestNormalizeDefaultsSource(t *testing.T) {
	t.Parallel()

	p, err := Normalize(jobs.RawRecord{Title: "Intern", Company: "Acme", URL: "https://acme.example/1", Location: "Location: NYC; nyc; Remote"}, now)
	require.NoError(t, err)
	require.Equal(t, UnknownSource, p.Source)
	require.Equal(t, "NYC; Remote", p.Location)
	require.Nil(t, p.PostedAt)
}

func TestEquivalentURLsShareKey(t *testing.T) {
	t.Parallel()

	a, err := CanonicalURL("HTTP://Example.COM:80/jobs/1?z=1&a=2#top")
	require.NoError(t, err)
	b, err := CanonicalURL("http://example.com/jobs/1?a=2&z=1&utm_campaign=x")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, "http://example.com/jobs/1?a=2&z=1", a)
}

func TestParsePostedAt(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Time{
		"2026-09-30T12:00:00-04:00":     time.Date(2026, time.September, 30, 16, 0, 0, 0, time.UTC),
		"Tue, 30 Sep 2025 12:00:00 GMT": time.Date(2025, time.September, 30, 12, 0, 0, 0, time.UTC),
		"09/15/2026":                    time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC),
		"Oct 01":                        time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		"Dec 5":                         time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC),
		"0d":                            now,
		"3d":                            now.AddDate(0, 0, -3),
		"2w":                            now.AddDate(0, 0, -14),
		"1mo":                           now.AddDate(0, -1, 0),
		"30d+":                          now.AddDate(0, 0, -30),
	}
	for raw, want := range cases {
		got, ok := ParsePostedAt(raw, now)
		require.True(t, ok, raw)
		require.True(t, want.Equal(got), "%s: want %s got %s", raw, want, got)
	}

	for _, raw := range []string{"", "yesterday-ish", "soon"} {
		_, ok := ParsePostedAt(raw, now)
		require.False(t, ok, raw)
	}
}

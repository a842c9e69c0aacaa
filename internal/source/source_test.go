package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

type fakeFetcher struct {
	results map[string]jobs.FetchResult
	calls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) jobs.FetchResult {
	f.calls = append(f.calls, u)
	if res, ok := f.results[u]; ok {
		return res
	}
	return jobs.FetchResult{URL: u, Outcome: jobs.FetchFatal, Err: errors.New("not found")}
}

func TestRecognizerMatch(t *testing.T) {
	t.Parallel()

	r := NewRecognizer(DefaultKeywords)
	cases := map[string]bool{
		"Software Engineering Intern":    true,
		"Summer 2026 Interns":            true,
		"Data Science Internship":        true,
		"Co-op, Firmware":                true,
		"Student Researcher":             true,
		"Senior Backend Engineer":        false,
		"COOP program - embedded":        true,
		"Co-operative Education Student": true,
		"Co-operative Placement, QA":     true,
		"Studentship in ML":              true,
		"Product Designer":               false,
		"":                               false,
	}
	for title, want := range cases {
		require.Equal(t, want, r.Match(title), title)
	}
}

func TestNilRecognizerAcceptsEverything(t *testing.T) {
	t.Parallel()

	r := NewRecognizer([]string{" ", ""})
	require.Nil(t, r)
	require.True(t, r.Match("Staff Engineer"))
}

func TestDiscardable(t *testing.T) {
	t.Parallel()

	require.True(t, Discardable(jobs.RawRecord{Title: "Intern", Company: jobs.PlaceholderCompany}))
	require.True(t, Discardable(jobs.RawRecord{Title: jobs.PlaceholderTitle, Company: "Acme"}))
	require.True(t, Discardable(jobs.RawRecord{Title: "  ", Company: "Acme"}))
	require.False(t, Discardable(jobs.RawRecord{Title: "Intern", Company: "Acme"}))
}

func TestBaseAcceptFiltersStampsAndCaps(t *testing.T) {
	t.Parallel()

	b := Base{Tag: "Test-Source", Cap: 2, Recognizer: NewRecognizer(DefaultKeywords)}
	raws := []jobs.RawRecord{
		{Title: "Senior Engineer", Company: "Acme"},
		{Title: "SWE Intern", Company: "Acme", URL: "/a"},
		{Title: "SWE Intern", Company: jobs.PlaceholderCompany},
		{Title: "Data Intern", Company: "Beta", URL: "/b", Source: "Override"},
		{Title: "ML Intern", Company: "Gamma", URL: "/c"},
	}

	out := b.Accept(raws, "https://example.com/list")
	require.Len(t, out, 2)
	require.Equal(t, "Test-Source", out[0].Source)
	require.Equal(t, "https://example.com/list", out[0].BaseURL)
	require.Equal(t, "Override", out[1].Source)
}

func TestBaseAcceptDefaultCap(t *testing.T) {
	t.Parallel()

	raws := make([]jobs.RawRecord, 0, 50)
	for range 50 {
		raws = append(raws, jobs.RawRecord{Title: "Intern", Company: "Acme"})
	}
	require.Len(t, Base{}.Accept(raws, ""), DefaultCap)
}

func TestBaseCollectFallsBackAcrossMirrors(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{results: map[string]jobs.FetchResult{
		"https://mirror-b.example/list": {Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte("ok")},
		"https://mirror-c.example/list": {Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte("ok")},
	}}
	b := Base{
		Name:    "mirrors",
		Tag:     "Mirrors",
		URLs:    []string{"https://mirror-a.example/list", "https://mirror-b.example/list", "https://mirror-c.example/list"},
		Fetcher: fetcher,
	}

	out := b.Collect(context.Background(), func(ctx context.Context, u string) ([]jobs.RawRecord, error) {
		body, _, err := b.FetchBody(ctx, u)
		if err != nil {
			return nil, err
		}
		require.Equal(t, "ok", string(body))
		return []jobs.RawRecord{{Title: "Intern", Company: "Acme", URL: "/x"}}, nil
	})

	require.Len(t, out, 1)
	require.Equal(t, "https://mirror-b.example/list", out[0].BaseURL)
	require.Equal(t, []string{"https://mirror-a.example/list", "https://mirror-b.example/list"}, fetcher.calls)
}

func TestBaseCollectRecoversParserPanic(t *testing.T) {
	t.Parallel()

	b := Base{URLs: []string{"a", "b"}}
	calls := 0
	out := b.Collect(context.Background(), func(context.Context, string) ([]jobs.RawRecord, error) {
		calls++
		if calls == 1 {
			panic("bad markup")
		}
		return []jobs.RawRecord{{Title: "Intern", Company: "Acme"}}, nil
	})
	require.Len(t, out, 1)
	require.Equal(t, 2, calls)
}

func TestBaseCollectStopsWhenCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Base{URLs: []string{"a"}}
	out := b.Collect(ctx, func(context.Context, string) ([]jobs.RawRecord, error) {
		t.Fatal("page should not be called")
		return nil, nil
	})
	require.Empty(t, out)
}

func TestFetchBodyReportsOutcome(t *testing.T) {
	t.Parallel()

	b := Base{Name: "x", Fetcher: &fakeFetcher{results: map[string]jobs.FetchResult{
		"u": {Outcome: jobs.FetchBlocked, Attempts: 1, StatusCode: 403, Err: errors.New("status 403")},
	}}}
	_, _, err := b.FetchBody(context.Background(), "u")
	require.Error(t, err)
	require.Contains(t, err.Error(), "blocked")

	_, _, err = Base{Name: "none"}.FetchBody(context.Background(), "u")
	require.Error(t, err)
}

func TestFieldCascade(t *testing.T) {
	t.Parallel()

	html := `<ul>
	<li class="card"><h3 class="title">SWE Intern</h3><span data-company="Acme"></span><a href="/jobs/1">Apply</a></li>
	<li class="card"><h2>ML Intern</h2><a class="link" href="/jobs/2">Apply</a></li>
	</ul>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	cascade := FieldCascade{
		Title:   []Strategy{Text(".title"), Text("h2")},
		Company: []Strategy{Attr("[data-company]", "data-company")},
		URL:     []Strategy{Attr("a.link", "href"), Attr("a", "href")},
	}
	cards := SelectCards(doc.Selection, []string{".missing", "li.card"})
	require.Equal(t, 2, cards.Length())

	first := cascade.Extract(cards.Eq(0))
	require.Equal(t, "SWE Intern", first.Title)
	require.Equal(t, "Acme", first.Company)
	require.Equal(t, "/jobs/1", first.URL)

	second := cascade.Extract(cards.Eq(1))
	require.Equal(t, "ML Intern", second.Title)
	require.Equal(t, jobs.PlaceholderCompany, second.Company)
	require.Equal(t, "/jobs/2", second.URL)

	require.Equal(t, 0, SelectCards(doc.Selection, []string{".nothing"}).Length())
	require.Equal(t, "fixed", FirstNonEmpty(cards.Eq(0), nil, Text(".nope"), Const("fixed")))
}

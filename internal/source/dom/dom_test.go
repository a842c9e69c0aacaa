package dom

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/headless/detector"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

const boardHTML = `<html><body>
<ul>
  <li data-test="jobListing">
    <a data-test="job-title" href="/job-listing/swe-intern-JV_1.htm">Software Engineer Intern</a>
    <span data-test="employer-name">Acme</span>
    <div data-test="emp-location">Chicago, IL</div>
    <div data-test="job-age">3d</div>
  </li>
  <li data-test="jobListing">
    <a data-test="job-title" href="/job-listing/pm-JV_2.htm">Product Manager</a>
    <span data-test="employer-name">Beta</span>
  </li>
  <li data-test="jobListing">
    <div class="job-title">Data Intern</div>
    <a href="https://careers.gamma.example/42">Apply</a>
  </li>
</ul>
</body></html>`

func boardConfig() Config {
	return Config{
		Cards: []string{"article.job-card", "li[data-test='jobListing']"},
		Fields: source.FieldCascade{
			Title:    []source.Strategy{source.Text("[data-test='job-title']"), source.Text(".job-title")},
			Company:  []source.Strategy{source.Text("[data-test='employer-name']")},
			Location: []source.Strategy{source.Text("[data-test='emp-location']")},
			URL:      []source.Strategy{source.Attr("a[data-test='job-title']", "href"), source.Attr("a", "href")},
			PostedAt: []source.Strategy{source.Text("[data-test='job-age']")},
		},
	}
}

type pageFetcher struct {
	res   jobs.FetchResult
	calls int
}

func (p *pageFetcher) Fetch(_ context.Context, u string) jobs.FetchResult {
	p.calls++
	res := p.res
	res.URL = u
	return res
}

type fakeRenderer struct {
	body  string
	err   error
	calls int
}

func (f *fakeRenderer) Render(_ context.Context, u string) jobs.FetchResult {
	f.calls++
	if f.err != nil {
		return jobs.FetchResult{URL: u, Outcome: jobs.FetchTransient, Err: f.err}
	}
	return jobs.FetchResult{URL: u, Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(f.body)}
}

func TestParseCards(t *testing.T) {
	t.Parallel()

	a := New(source.Base{Name: "board"}, boardConfig())
	records, err := a.Parse([]byte(boardHTML))
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "Software Engineer Intern", records[0].Title)
	require.Equal(t, "Acme", records[0].Company)
	require.Equal(t, "Chicago, IL", records[0].Location)
	require.Equal(t, "/job-listing/swe-intern-JV_1.htm", records[0].URL)
	require.Equal(t, "3d", records[0].PostedAt)

	require.Equal(t, "Data Intern", records[2].Title)
	require.Equal(t, jobs.PlaceholderCompany, records[2].Company)
	require.Equal(t, "https://careers.gamma.example/42", records[2].URL)
}

func TestParseUsesConstantCompany(t *testing.T) {
	t.Parallel()

	cfg := boardConfig()
	cfg.Company = "Gamma"
	records, err := New(source.Base{}, cfg).Parse([]byte(boardHTML))
	require.NoError(t, err)
	require.Equal(t, "Acme", records[0].Company)
	require.Equal(t, "Gamma", records[2].Company)
}

func TestFetchPostingsFiltersAndStamps(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{res: jobs.FetchResult{Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(boardHTML)}}
	a := New(source.Base{
		Name:       "board",
		Tag:        "Board",
		URLs:       []string{"https://board.example/jobs"},
		Recognizer: source.NewRecognizer(source.DefaultKeywords),
		Fetcher:    fetcher,
	}, boardConfig())

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	// Product Manager is not a target role and Data Intern has no company.
	require.Len(t, records, 1)
	require.Equal(t, "Board", records[0].Source)
	require.Equal(t, "https://board.example/jobs", records[0].BaseURL)
}

func TestShellPageIsRendered(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{res: jobs.FetchResult{Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}}
	renderer := &fakeRenderer{body: boardHTML}
	a := New(source.Base{
		Name:    "board",
		Tag:     "Board",
		URLs:    []string{"https://board.example/jobs"},
		Fetcher: fetcher,
	}, boardConfig(), WithRenderer(renderer, detector.NewHeuristic(0)))

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 1, renderer.calls)
}

func TestStaticEmptyPageIsNotRendered(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{res: jobs.FetchResult{Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(`<html><body><p>No openings right now.</p></body></html>`)}}
	renderer := &fakeRenderer{body: boardHTML}
	a := New(source.Base{URLs: []string{"https://board.example/jobs"}, Fetcher: fetcher},
		boardConfig(), WithRenderer(renderer, detector.NewHeuristic(10)))

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, renderer.calls)
}

func TestBlockedPageIsNotRendered(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{res: jobs.FetchResult{Outcome: jobs.FetchBlocked, StatusCode: 403, Err: errors.New("status 403")}}
	renderer := &fakeRenderer{body: boardHTML}
	a := New(source.Base{URLs: []string{"https://board.example/jobs"}, Fetcher: fetcher},
		boardConfig(), WithRenderer(renderer, nil))

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, renderer.calls)
}

func TestRenderFailureYieldsNothing(t *testing.T) {
	t.Parallel()

	fetcher := &pageFetcher{res: jobs.FetchResult{Outcome: jobs.FetchSuccess, StatusCode: 200}}
	renderer := &fakeRenderer{err: errors.New("net::ERR_CONNECTION_RESET")}
	a := New(source.Base{URLs: []string{"https://board.example/jobs"}, Fetcher: fetcher},
		boardConfig(), WithRenderer(renderer, nil))

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, 1, renderer.calls)
}

package jsonapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

const greenhouse = `{"jobs":[
 {"title":"Software Engineering Intern","absolute_url":"https://boards.greenhouse.io/acme/jobs/1","location":{"name":"Remote - US"},"updated_at":"2026-09-30T12:00:00-04:00"},
 {"title":"Staff Engineer","absolute_url":"https://boards.greenhouse.io/acme/jobs/2","location":{"name":"NYC"}}
],"meta":{"total":2}}`

const lever = `[
 {"text":"Hardware Co-op","hostedUrl":"https://jobs.lever.co/beta/abc","categories":{"location":"Austin, TX"},"createdAt":1759233600000,"descriptionPlain":"Build boards."}
]`

func TestParseGreenhouseWithConstantCompany(t *testing.T) {
	t.Parallel()

	a := New(source.Base{Name: "career-acme"}, Config{Company: "Acme"})
	records, err := a.Parse([]byte(greenhouse))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, jobs.RawRecord{
		Title:    "Software Engineering Intern",
		Company:  "Acme",
		Location: "Remote - US",
		URL:      "https://boards.greenhouse.io/acme/jobs/1",
		PostedAt: "2026-09-30T12:00:00-04:00",
	}, records[0])
}

func TestParseLeverArray(t *testing.T) {
	t.Parallel()

	a := New(source.Base{}, Config{Company: "Beta"})
	records, err := a.Parse([]byte(lever))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Hardware Co-op", records[0].Title)
	require.Equal(t, "Austin, TX", records[0].Location)
	require.Equal(t, "https://jobs.lever.co/beta/abc", records[0].URL)
	require.Equal(t, "Build boards.", records[0].Description)
	require.Equal(t, "2025-09-30T12:00:00Z", records[0].PostedAt)
}

func TestParseMissingCompanyBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	records, err := New(source.Base{}, Config{}).Parse([]byte(`{"results":[{"name":"Intern"},"junk"]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, jobs.PlaceholderCompany, records[0].Company)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := New(source.Base{}, Config{}).Parse([]byte(`{"jobs":`))
	require.Error(t, err)
}

func TestParseUnknownShape(t *testing.T) {
	t.Parallel()

	records, err := New(source.Base{}, Config{}).Parse([]byte(`{"unexpected":{"jobs":[]}}`))
	require.NoError(t, err)
	require.Empty(t, records)
}

type bodyFetcher string

func (b bodyFetcher) Fetch(_ context.Context, u string) jobs.FetchResult {
	return jobs.FetchResult{URL: u, Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(b)}
}

func TestFetchPostingsAppliesRecognizer(t *testing.T) {
	t.Parallel()

	a := New(source.Base{
		Name:       "career-acme",
		Tag:        "Career-Acme",
		URLs:       []string{"https://boards-api.example/v1/boards/acme/jobs"},
		Recognizer: source.NewRecognizer(source.DefaultKeywords),
		Fetcher:    bodyFetcher(greenhouse),
	}, Config{Company: "Acme"})

	records, err := a.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Career-Acme", records[0].Source)
}

package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/source"
)

const pipeReadme = `# Summer 2026 Tech Internships

Some intro text.

| Company | Role | Location | Application/Link | Date Posted |
| ------- | ---- | -------- | ---------------- | ----------- |
| **[Acme](https://acme.example)** | Software Engineering Intern | San Francisco, CA | <a href="https://acme.example/jobs/1?src=gh&amp;ref=list"><img src="apply.png" alt="Apply"></a> | Oct 01 |
| ↳ | Data Science Intern | NYC</br>Remote | <a href="https://acme.example/jobs/2">Apply</a> | Oct 02 |
| Beta Corp | Firmware Co-op | Austin, TX | 🔒 | Sep 28 |
| ↳ | Hardware Intern | Austin, TX | 🔒 | Sep 28 |
| Gamma | ML Intern |  | [Apply](https://gamma.example/careers/ml) | 0d |
`

const htmlReadme = `<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th><th>Age</th></tr></thead>
<tbody>
<tr><td><strong><a href="https://delta.example">Delta</a></strong></td><td>Backend Intern</td><td><details><summary><strong>3 locations</strong></summary>Seattle, WA</br>Boston, MA</br>Remote</details></td><td><a href="https://delta.example/apply/9">Apply</a></td><td>2d</td></tr>
<tr><td>↳</td><td>Frontend Intern</td><td>Remote</td><td><a href="https://delta.example/apply/10">Apply</a></td><td>3d</td></tr>
<tr><td>AT&amp;T</td><td>Network Intern</td><td>Dallas, TX</td><td>🔒</td><td>9d</td></tr>
</tbody>
</table>`

func TestParsePipeTable(t *testing.T) {
	t.Parallel()

	records, err := Parse([]byte(pipeReadme))
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, jobs.RawRecord{
		Company:  "Acme",
		Title:    "Software Engineering Intern",
		Location: "San Francisco, CA",
		URL:      "https://acme.example/jobs/1?src=gh&ref=list",
		PostedAt: "Oct 01",
	}, records[0])

	require.Equal(t, "Acme", records[1].Company)
	require.Equal(t, "NYC; Remote", records[1].Location)
	require.Equal(t, "https://acme.example/jobs/2", records[1].URL)

	require.Equal(t, "Gamma", records[2].Company)
	require.Empty(t, records[2].Location)
	require.Equal(t, "https://gamma.example/careers/ml", records[2].URL)
	require.Equal(t, "0d", records[2].PostedAt)
}

func TestParseHTMLTable(t *testing.T) {
	t.Parallel()

	records, err := Parse([]byte(htmlReadme))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "Delta", records[0].Company)
	require.Equal(t, "Backend Intern", records[0].Title)
	require.Equal(t, "Seattle, WA; Boston, MA; Remote", records[0].Location)
	require.Equal(t, "https://delta.example/apply/9", records[0].URL)
	require.Equal(t, "2d", records[0].PostedAt)

	require.Equal(t, "Delta", records[1].Company)
	require.Equal(t, "Frontend Intern", records[1].Title)
}

func TestParseWithoutTables(t *testing.T) {
	t.Parallel()

	records, err := Parse([]byte("# nothing here\n\njust prose"))
	require.NoError(t, err)
	require.Empty(t, records)
}

type stubFetcher map[string]string

func (s stubFetcher) Fetch(_ context.Context, u string) jobs.FetchResult {
	body, ok := s[u]
	if !ok {
		return jobs.FetchResult{URL: u, Outcome: jobs.FetchFatal, StatusCode: 404}
	}
	return jobs.FetchResult{URL: u, Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(body)}
}

func TestAdapterUsesMirrorAndStampsSource(t *testing.T) {
	t.Parallel()

	adapter := New(source.Base{
		Name: "github-internships",
		Tag:  "GitHub-Internships",
		URLs: []string{
			"https://raw.example/primary/README.md",
			"https://raw.example/mirror/README.md",
		},
		Recognizer: source.NewRecognizer(source.DefaultKeywords),
		Fetcher:    stubFetcher{"https://raw.example/mirror/README.md": pipeReadme},
	})

	require.Equal(t, "github-internships", adapter.Name())
	records, err := adapter.FetchPostings(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		require.Equal(t, "GitHub-Internships", r.Source)
		require.Equal(t, "https://raw.example/mirror/README.md", r.BaseURL)
	}
}

func TestParsePipeTableKeepsHeaderForDataRows(t *testing.T) {
	t.Parallel()

	readme := `| Company | Role | Location | Application/Link | Date Posted |
| --- | --- | --- | --- | --- |
| The Walt Disney Company | Software Engineering Intern, Multiple Roles | Glendale, CA | [Apply](https://disney.example/jobs/7) | Oct 03 |
| Acme | Data Intern | Remote | [Apply](https://acme.example/jobs/8) | Oct 04 |
`
	records, err := Parse([]byte(readme))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "The Walt Disney Company", records[0].Company)
	require.Equal(t, "Glendale, CA", records[0].Location)
	require.Equal(t, "Oct 03", records[0].PostedAt)

	require.Equal(t, "Acme", records[1].Company)
	require.Equal(t, "Remote", records[1].Location)
	require.Equal(t, "Oct 04", records[1].PostedAt)
}

func TestHeaderColumnsMatchesWholeWords(t *testing.T) {
	t.Parallel()

	cols, ok := headerColumns([]string{"Stage", "Employer", "Language", "Job Title", "Locations", "Age"})
	require.True(t, ok)
	require.Equal(t, columns{company: 1, title: 3, location: 4, link: -1, posted: 5}, cols)
}

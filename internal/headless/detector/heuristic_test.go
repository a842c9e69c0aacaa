package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

func ok(body string) jobs.FetchResult {
	return jobs.FetchResult{Outcome: jobs.FetchSuccess, StatusCode: 200, Body: []byte(body)}
}

func TestShouldPromoteEmptyBody(t *testing.T) {
	t.Parallel()

	require.True(t, NewHeuristic(0).ShouldPromote(ok("   \n")))
}

func TestShouldPromoteShellMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(ok(`<body><div id="__next"></div></body>`)))
	require.True(t, h.ShouldPromote(ok(`<noscript>Please enable JavaScript to view jobs</noscript>`)))
	require.True(t, h.ShouldPromote(ok(`<app-root ng-version="17.0.1"></app-root>`)))
}

func TestShouldPromoteScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	require.True(t, h.ShouldPromote(ok(`<html><script>var a=1;</script><p>t</p></html>`)))
	require.True(t, h.ShouldPromote(ok(`<html><p>jobs</p><script src="x.js"`)))
}

func TestShouldPromoteStaticListing(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	body := `<html><body><ul><li class="job">SWE Intern</li><li class="job">ML Intern</li></ul></body></html>`
	require.False(t, h.ShouldPromote(ok(body)))
}

func TestShouldPromoteIgnoresFailures(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(jobs.FetchResult{Outcome: jobs.FetchFatal, StatusCode: 404}))
	require.False(t, h.ShouldPromote(jobs.FetchResult{Outcome: jobs.FetchBlocked, StatusCode: 403, Body: []byte(`<div id="root">`)}))
}

func TestScriptPercent(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, scriptPercent(nil))
	require.Equal(t, 0, scriptPercent([]byte("<p>plain</p>")))
	require.Equal(t, 100, scriptPercent([]byte("<script>x</script>")))
}

// Package apply drives application forms on job portals: it classifies the
// posting URL, runs the portal's workflow in an exclusive browser session and
// records the outcome.
package apply

import (
	"net/url"
	"strings"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Classify picks the workflow for a posting URL. It never fails; anything
// unrecognized, including the empty string, is Generic.
func Classify(rawURL string) jobs.PortalKind {
	raw := strings.ToLower(strings.TrimSpace(rawURL))
	if raw == "" {
		return jobs.PortalGeneric
	}
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	switch {
	case strings.Contains(host, "workday"):
		return jobs.PortalWorkday
	case onDomain(host, "indeed.com"):
		return jobs.PortalIndeed
	case onDomain(host, "linkedin.com"):
		return jobs.PortalLinkedIn
	case onDomain(host, "github.com"):
		return jobs.PortalGitHubRedirect
	default:
		return jobs.PortalGeneric
	}
}

// onDomain matches the domain itself, any subdomain, or a scheme-less string
// that starts with either.
func onDomain(host, domain string) bool {
	if host == domain || strings.HasSuffix(host, "."+domain) {
		return true
	}
	return strings.HasPrefix(host, domain+"/") || strings.Contains(host, "."+domain+"/")
}

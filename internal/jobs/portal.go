package jobs

// PortalKind selects an application workflow.
type PortalKind string

// Supported portal families. Generic is the fallback.
const (
	PortalWorkday        PortalKind = "workday"
	PortalIndeed         PortalKind = "indeed"
	PortalLinkedIn       PortalKind = "linkedin"
	PortalGitHubRedirect PortalKind = "github_redirect"
	PortalGeneric        PortalKind = "generic"
)

// PortalKinds lists every kind in a stable order.
func PortalKinds() []PortalKind {
	return []PortalKind{PortalWorkday, PortalIndeed, PortalLinkedIn, PortalGitHubRedirect, PortalGeneric}
}

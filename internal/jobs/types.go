// Package jobs defines the records and contracts shared by the acquisition
// pipeline and the application engine.
package jobs

import (
	"errors"
	"time"
)

// DefaultLocation is stamped on postings whose source omits a location.
const DefaultLocation = "Remote"

// PlaceholderCompany marks a company that no extraction strategy could find.
const PlaceholderCompany = "Unknown Company"

// PlaceholderTitle marks a title that no extraction strategy could find.
const PlaceholderTitle = "Unknown Title"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQueueClosed is returned by queues after shutdown.
	ErrQueueClosed = errors.New("queue closed")
)

// Posting is a normalized job or internship listing. URL is the natural key.
type Posting struct {
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RawRecord is what an adapter extracts before normalization.
type RawRecord struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	PostedAt    string
	// BaseURL resolves relative URLs; usually the page the record came from.
	BaseURL string
	Source  string
}

// PostingFilter narrows ListPostings.
type PostingFilter struct {
	Source string
	Since  *time.Time
	Limit  int
}

// PortalCredentials is a portal-specific login created on demand.
type PortalCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Empty reports whether either half of the pair is missing.
func (c *PortalCredentials) Empty() bool {
	return c == nil || c.Email == "" || c.Password == ""
}

// CandidateProfile carries the applicant data used to fill forms.
type CandidateProfile struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Phone          string             `json:"phone"`
	Education      string             `json:"education"`
	GraduationYear string             `json:"graduation_year,omitempty"`
	Resume         string             `json:"resume,omitempty"`
	Answers        map[string]string  `json:"answers,omitempty"`
	Workday        *PortalCredentials `json:"workday,omitempty"`
}

// Redacted returns a copy safe to expose over the API.
func (c CandidateProfile) Redacted() CandidateProfile {
	if c.Workday != nil {
		creds := *c.Workday
		if creds.Password != "" {
			creds.Password = "********"
		}
		c.Workday = &creds
	}
	return c
}

// ApplicationRequest asks the engine to apply a candidate to a posting URL.
type ApplicationRequest struct {
	RequestID   string `json:"request_id"`
	JobURL      string `json:"job_url"`
	CandidateID string `json:"candidate_id"`
	Submitted   int64  `json:"submitted"`
}

// ApplicationStatus is the terminal state of an application attempt.
type ApplicationStatus string

// Attempt outcomes.
const (
	ApplicationSucceeded ApplicationStatus = "succeeded"
	ApplicationFailed    ApplicationStatus = "failed"
)

// ApplicationOutcome is the result of one application attempt.
type ApplicationOutcome struct {
	JobURL      string            `json:"job_url"`
	CandidateID string            `json:"candidate_id"`
	Portal      PortalKind        `json:"portal"`
	Status      ApplicationStatus `json:"status"`
	Error       *ErrorRecord      `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Succeeded reports whether the attempt ended in Submitted.
func (o ApplicationOutcome) Succeeded() bool {
	return o.Status == ApplicationSucceeded
}

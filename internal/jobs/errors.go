package jobs

import "time"

// ErrorType is the closed failure taxonomy for fetch and workflow errors.
type ErrorType string

// Known error types. New kinds are added here, never built ad hoc.
const (
	ErrorBlocked               ErrorType = "blocked"
	ErrorTransientNetwork      ErrorType = "transient_network"
	ErrorElementMissing        ErrorType = "element_missing"
	ErrorUploadFailed          ErrorType = "upload_failed"
	ErrorCredentialsMissing    ErrorType = "credentials_missing"
	ErrorSubmissionUnconfirmed ErrorType = "submission_unconfirmed"
	ErrorUnknown               ErrorType = "unknown"
)

var errorTypes = map[ErrorType]struct{}{
	ErrorBlocked:               {},
	ErrorTransientNetwork:      {},
	ErrorElementMissing:        {},
	ErrorUploadFailed:          {},
	ErrorCredentialsMissing:    {},
	ErrorSubmissionUnconfirmed: {},
	ErrorUnknown:               {},
}

// Valid reports whether t is a member of the taxonomy.
func (t ErrorType) Valid() bool {
	_, ok := errorTypes[t]
	return ok
}

// ErrorRecord is a persisted, immutable failure.
type ErrorRecord struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id,omitempty"`
	JobURL      string    `json:"job_url"`
	Type        ErrorType `json:"error_type"`
	FieldName   string    `json:"field_name,omitempty"`
	Message     string    `json:"message"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrorFilter narrows ListErrors.
type ErrorFilter struct {
	CandidateID string
	JobURL      string
	Limit       int
	// ApplicationsOnly drops records without a candidate, such as fetch
	// failures recorded during acquisition.
	ApplicationsOnly bool
}

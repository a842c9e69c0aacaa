package jobs

import (
	"net/http"
	"time"
)

// FetchOutcome buckets an HTTP exchange.
type FetchOutcome string

// Fetch outcomes.
const (
	FetchSuccess   FetchOutcome = "success"
	FetchBlocked   FetchOutcome = "blocked"
	FetchTransient FetchOutcome = "transient"
	FetchFatal     FetchOutcome = "fatal"
)

// FetchResult is returned by every fetch; failures are data, not errors.
type FetchResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Outcome    FetchOutcome
	Attempts   int
	Duration   time.Duration
	// Err holds the last transport or status error for non-success outcomes.
	Err error
}

// OK reports a 2xx result.
func (r FetchResult) OK() bool {
	return r.Outcome == FetchSuccess
}

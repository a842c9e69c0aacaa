package browser

import (
	"context"
	"errors"

	"github.com/JakeFAU/jobswipe/internal/apply"
	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// ErrDisabled is returned when headless Chrome is turned off in config.
var ErrDisabled = errors.New("headless browser not configured")

// Noop stands in for the launcher when headless Chrome is disabled.
type Noop struct{}

// NewNoop creates a Noop launcher.
func NewNoop() *Noop {
	return &Noop{}
}

// NewSession always fails.
func (Noop) NewSession(context.Context) (apply.Session, error) {
	return nil, ErrDisabled
}

// Render reports a fatal outcome so callers keep the static response.
func (Noop) Render(_ context.Context, url string) jobs.FetchResult {
	return jobs.FetchResult{URL: url, Outcome: jobs.FetchFatal, Err: ErrDisabled}
}

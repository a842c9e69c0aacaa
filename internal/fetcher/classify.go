package fetcher

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// ErrHostBlocked is reported when a host is skipped after repeated refusals.
var ErrHostBlocked = errors.New("host temporarily blocked after repeated refusals")

// Classify buckets a status code and transport error.
func Classify(status int, err error) jobs.FetchOutcome {
	switch {
	case status >= 200 && status < 300:
		return jobs.FetchSuccess
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		return jobs.FetchBlocked
	case status >= 500, status == http.StatusRequestTimeout:
		return jobs.FetchTransient
	case status > 0:
		return jobs.FetchFatal
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return jobs.FetchFatal
	}
	return jobs.FetchTransient
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
func RetryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

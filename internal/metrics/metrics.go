// Package metrics exposes Prometheus collectors for the acquisition pipeline
// and the application engine.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal         *prometheus.CounterVec
	fetchAttemptsTotal         *prometheus.CounterVec
	adapterRecordsTotal        *prometheus.CounterVec
	adapterFailuresTotal       *prometheus.CounterVec
	postingsSavedTotal         prometheus.Counter
	applicationsTotal          *prometheus.CounterVec
	applicationErrorsTotal     *prometheus.CounterVec
	browserSessionsActive      prometheus.Gauge
	applyWorkersActive         prometheus.Gauge
	rateLimitDelaySeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_requests_total",
				Help: "Logical fetches, labeled by site and outcome (success, blocked, transient, fatal).",
			},
			[]string{"site", "outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_attempts_total",
				Help: "Individual HTTP attempts including retries, labeled by site.",
			},
			[]string{"site"},
		)

		adapterRecordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adapter_records_total",
				Help: "Raw records emitted by source adapters.",
			},
			[]string{"adapter"},
		)

		adapterFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adapter_failures_total",
				Help: "Adapter runs that errored or panicked.",
			},
			[]string{"adapter"},
		)

		postingsSavedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "postings_saved_total",
				Help: "Postings newly inserted by the deduplicating writer.",
			},
		)

		applicationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "applications_total",
				Help: "Application attempts, labeled by portal and status.",
			},
			[]string{"portal", "status"},
		)

		applicationErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "application_errors_total",
				Help: "Recorded error records, labeled by error type.",
			},
			[]string{"error_type"},
		)

		browserSessionsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "browser_sessions_active",
				Help: "Browser sessions currently held by application attempts.",
			},
		)

		applyWorkersActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "apply_workers_active",
				Help: "Workers currently processing an application request.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rate_limit_delay_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch records one logical fetch and the attempts it took.
func ObserveFetch(rawURL, outcome string, attempts int) {
	Init()
	site := SanitizeSite(rawURL)
	fetchRequestsTotal.WithLabelValues(site, outcome).Inc()
	if attempts > 0 {
		fetchAttemptsTotal.WithLabelValues(site).Add(float64(attempts))
	}
}

// ObserveAdapterRecords counts records emitted by one adapter run.
func ObserveAdapterRecords(adapter string, n int) {
	Init()
	adapterRecordsTotal.WithLabelValues(adapter).Add(float64(n))
}

// ObserveAdapterFailure counts an adapter run that errored or panicked.
func ObserveAdapterFailure(adapter string) {
	Init()
	adapterFailuresTotal.WithLabelValues(adapter).Inc()
}

// ObservePostingsSaved counts newly inserted postings.
func ObservePostingsSaved(n int) {
	Init()
	if n > 0 {
		postingsSavedTotal.Add(float64(n))
	}
}

// ObserveApplication counts a finished application attempt.
func ObserveApplication(portal, status string) {
	Init()
	applicationsTotal.WithLabelValues(portal, status).Inc()
}

// ObserveApplicationError counts a persisted error record.
func ObserveApplicationError(errorType string) {
	Init()
	applicationErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncBrowserSessions increments the active browser sessions gauge.
func IncBrowserSessions() {
	Init()
	browserSessionsActive.Inc()
}

// DecBrowserSessions decrements the active browser sessions gauge.
func DecBrowserSessions() {
	Init()
	browserSessionsActive.Dec()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	applyWorkersActive.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	applyWorkersActive.Dec()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, readiness and metrics probes plus the /v1 routes for
//     on-demand acquisition, application submission, posting and error listings, and candidate profiles.
//   - Acquisition: internal/source/catalog builds one adapter per configured source (markdown tables, HTML
//     boards, JSON APIs, RSS/Atom feeds). internal/acquire runs them concurrently with per-adapter timeouts,
//     normalizes and dedupes by URL, and writes new postings through a seen-set guard. A periodic refresh runs
//     on the configured interval.
//   - Fetching: a Colly-based fetcher with rotating user agents and header profiles, bounded retries with
//     backoff and jitter, and a per-host token bucket that parks hosts after repeated refusals. Fetch failures
//     land in the application-error log.
//   - Applications: requests are queued (in memory or on Pub/Sub) and fanned out to a fixed worker pool. Each
//     attempt opens a headless Chrome session, follows redirects to the hosting portal, and runs the matching
//     workflow (Workday, LinkedIn, Indeed, GitHub redirect, generic). Failures are classified,
//     snapshotted to the blob store, and recorded.
//   - Persistence: postings, error records and candidate profiles live in memory, SQLite or Postgres; snapshots
//     go to memory, a local directory or GCS; the seen-set is in memory or Redis.
//
// Quick checklist:
//   - Configure env vars with the JOBSWIPE_ prefix, e.g. JOBSWIPE_SERVER_PORT, JOBSWIPE_STORAGE_DRIVER,
//     JOBSWIPE_DB_DSN, JOBSWIPE_CACHE_ADDR, JOBSWIPE_PUBSUB_PROJECT_ID, JOBSWIPE_HEADLESS_ENABLED.
//   - Run locally: go run ./cmd/jobswipe -config config.yaml (or rely solely on env overrides).
//   - SIGINT/SIGTERM drains the HTTP server, stops workers and closes backends.
package main

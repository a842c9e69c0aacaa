// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/acquisitions for an on-demand refresh.
//   - POST /v1/applications to queue an application attempt.
//   - GET /v1/postings, /v1/application-errors and GET/PUT
//     /v1/candidates/{candidate_id} via RecordsHandler.
package api

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

const (
	defaultPostingLimit = 50
	maxPostingLimit     = 500
	defaultErrorLimit   = 10
	maxErrorLimit       = 200
	recordsTimeout      = 3 * time.Second
	maxCandidateBody    = 1 << 20
)

// RecordsHandler exposes postings, application errors and candidate profiles.
type RecordsHandler struct {
	postings   jobs.PostingStore
	errors     jobs.ErrorStore
	candidates jobs.CandidateStore
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRecordsHandler wires the stores and logger.
func NewRecordsHandler(
	postings jobs.PostingStore,
	errorStore jobs.ErrorStore,
	candidates jobs.CandidateStore,
	logger *zap.Logger,
) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{
		postings:   postings,
		errors:     errorStore,
		candidates: candidates,
		timeout:    recordsTimeout,
		logger:     logger,
	}
}

// ListPostings handles GET /v1/postings?source=&since=&limit=. It returns
// {"postings": [...]} newest first, 400 for invalid filters, 503 when the
// store is missing, or 500 if the store call fails. since accepts RFC 3339.
func (h *RecordsHandler) ListPostings(w http.ResponseWriter, r *http.Request) {
	if h.postings == nil {
		writeError(w, http.StatusServiceUnavailable, "posting store unavailable")
		return
	}
	limit, err := parseLimit(r, defaultPostingLimit, maxPostingLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := jobs.PostingFilter{
		Source: strings.TrimSpace(r.URL.Query().Get("source")),
		Limit:  limit,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		since, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		filter.Since = &since
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	postings, err := h.postings.ListPostings(ctx, filter)
	if err != nil {
		h.logger.Error("list postings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list postings")
		return
	}
	if postings == nil {
		postings = []jobs.Posting{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"postings": postings})
}

// ListErrors handles GET /v1/application-errors?candidate_id=&job_url=&limit=.
// It returns {"errors": [...]} newest first. Fetch failures recorded without a
// candidate are listed only with include_fetch=true.
func (h *RecordsHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	if h.errors == nil {
		writeError(w, http.StatusServiceUnavailable, "error store unavailable")
		return
	}
	limit, err := parseLimit(r, defaultErrorLimit, maxErrorLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	includeFetch := false
	if raw := strings.TrimSpace(q.Get("include_fetch")); raw != "" {
		includeFetch, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_fetch must be a boolean")
			return
		}
	}
	filter := jobs.ErrorFilter{
		CandidateID:      strings.TrimSpace(q.Get("candidate_id")),
		JobURL:           strings.TrimSpace(q.Get("job_url")),
		Limit:            limit,
		ApplicationsOnly: !includeFetch,
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	records, err := h.errors.ListErrors(ctx, filter)
	if err != nil {
		h.logger.Error("list application errors failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list errors")
		return
	}
	if records == nil {
		records = []jobs.ErrorRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": records})
}

// GetCandidate handles GET /v1/candidates/{candidate_id}. Stored portal
// passwords are redacted.
func (h *RecordsHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	if h.candidates == nil {
		writeError(w, http.StatusServiceUnavailable, "candidate store unavailable")
		return
	}
	id, err := parseCandidateID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	candidate, err := h.candidates.GetCandidate(ctx, id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "candidate not found")
			return
		}
		h.logger.Error("get candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load candidate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidate": candidate.Redacted()})
}

// PutCandidate handles PUT /v1/candidates/{candidate_id}. The path id wins
// over any id in the body.
func (h *RecordsHandler) PutCandidate(w http.ResponseWriter, r *http.Request) {
	if h.candidates == nil {
		writeError(w, http.StatusServiceUnavailable, "candidate store unavailable")
		return
	}
	id, err := parseCandidateID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var candidate jobs.CandidateProfile
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCandidateBody)).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	candidate.ID = id
	if strings.TrimSpace(candidate.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.candidates.SaveCandidate(ctx, candidate); err != nil {
		h.logger.Error("save candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save candidate")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidate": candidate.Redacted()})
}

func parseCandidateID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "candidate_id"))
	if id == "" {
		return "", errors.New("candidate_id is required")
	}
	return id, nil
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	limit := def
	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	return limit, nil
}

package failure

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// Recorder classifies failures and persists them as ErrorRecords.
type Recorder struct {
	store  jobs.ErrorStore
	ids    jobs.IDGenerator
	clock  jobs.Clock
	logger *zap.Logger
}

// NewRecorder wires a recorder.
func NewRecorder(store jobs.ErrorStore, ids jobs.IDGenerator, clock jobs.Clock, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, ids: ids, clock: clock, logger: logger.Named("failure")}
}

// Record builds the ErrorRecord for err and stores it. The record is returned
// even when persisting fails so the caller can still report it.
func (r *Recorder) Record(ctx context.Context, jobURL, candidateID string, err error, snapshotURI string) (jobs.ErrorRecord, error) {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	record := jobs.ErrorRecord{
		CandidateID: candidateID,
		JobURL:      jobURL,
		Type:        Classify(err),
		FieldName:   FieldOf(err),
		Message:     err.Error(),
		SnapshotURI: snapshotURI,
		CreatedAt:   r.clock.Now(),
	}
	id, idErr := r.ids.NewID()
	if idErr != nil {
		return record, idErr
	}
	record.ID = id

	fields := []zap.Field{
		zap.String("error_id", record.ID),
		zap.String("error_type", string(record.Type)),
		zap.String("job_url", jobURL),
		zap.String("candidate_id", candidateID),
		zap.Error(err),
	}
	if record.FieldName != "" {
		fields = append(fields, zap.String("field", record.FieldName))
	}
	var typed *Error
	if errors.As(err, &typed) && len(typed.Stack) > 0 {
		fields = append(fields, zap.ByteString("stack", typed.Stack))
	}
	r.logger.Warn("failure recorded", fields...)
	metrics.ObserveApplicationError(string(record.Type))

	if storeErr := r.store.RecordError(context.WithoutCancel(ctx), record); storeErr != nil {
		r.logger.Error("persist error record failed", zap.String("error_id", record.ID), zap.Error(storeErr))
		return record, storeErr
	}
	return record, nil
}

// RecordingFetcher records terminal Blocked and TransientNetwork fetch results
// while passing every result through unchanged.
type RecordingFetcher struct {
	next     jobs.Fetcher
	recorder *Recorder
}

// NewRecordingFetcher decorates next.
func NewRecordingFetcher(next jobs.Fetcher, recorder *Recorder) *RecordingFetcher {
	return &RecordingFetcher{next: next, recorder: recorder}
}

// Fetch implements jobs.Fetcher.
func (f *RecordingFetcher) Fetch(ctx context.Context, url string) jobs.FetchResult {
	res := f.next.Fetch(ctx, url)
	if res.Outcome != jobs.FetchBlocked && res.Outcome != jobs.FetchTransient {
		return res
	}
	// Caller cancellation is not a source failure.
	if ctx.Err() != nil {
		return res
	}
	_, _ = f.recorder.Record(ctx, url, "", FromFetch(res), "")
	return res
}

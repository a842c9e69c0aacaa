// Package worker implements the application execution loop.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// DefaultMaxDeliveries bounds redeliveries caused by store outages.
const DefaultMaxDeliveries = 5

// Applier runs one application attempt.
type Applier interface {
	Apply(ctx context.Context, jobURL string, candidate *jobs.CandidateProfile) jobs.ApplicationOutcome
}

// Config controls Worker behavior.
type Config struct {
	// MaxDeliveries drops a request that keeps failing before the attempt
	// can start.
	MaxDeliveries int
}

// Worker consumes application requests and runs them through the engine.
type Worker struct {
	queue      jobs.Queue
	candidates jobs.CandidateStore
	applier    Applier
	seen       jobs.SeenSet
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker. seen may be nil.
func New(
	queue jobs.Queue,
	candidates jobs.CandidateStore,
	applier Applier,
	seen jobs.SeenSet,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = DefaultMaxDeliveries
	}
	return &Worker{
		queue:      queue,
		candidates: candidates,
		applier:    applier,
		seen:       seen,
		cfg:        cfg,
		logger:     logger.Named("worker"),
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// closes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, jobs.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued application request",
			zap.String("request_id", item.Request.RequestID),
			zap.Int("attempt", item.Attempt))
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item jobs.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	req := item.Request
	log := w.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("candidate_id", req.CandidateID),
		zap.String("job_url", req.JobURL),
	)

	candidate, err := w.candidates.GetCandidate(ctx, req.CandidateID)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		log.Warn("candidate not found; dropping request")
		item.Acknowledge()
		return
	case err != nil:
		if item.Attempt >= w.cfg.MaxDeliveries {
			log.Error("candidate load kept failing; dropping request", zap.Int("attempt", item.Attempt), zap.Error(err))
			item.Acknowledge()
			return
		}
		log.Warn("candidate load failed; requesting redelivery", zap.Error(err))
		item.Reject()
		return
	}

	key := seenKey(req.CandidateID, req.JobURL)
	if w.alreadySubmitted(ctx, key, log) {
		log.Info("application already submitted; skipping redelivery")
		item.Acknowledge()
		return
	}

	outcome := w.applier.Apply(ctx, req.JobURL, &candidate)
	if outcome.Succeeded() {
		w.markSubmitted(ctx, key, log)
		log.Info("application submitted", zap.String("portal", string(outcome.Portal)))
	} else if outcome.Error != nil {
		log.Info("application failed",
			zap.String("portal", string(outcome.Portal)),
			zap.String("error_type", string(outcome.Error.Type)),
			zap.String("error_id", outcome.Error.ID))
	}
	// The outcome is recorded either way; redelivery would only repeat it.
	item.Acknowledge()
}

func (w *Worker) alreadySubmitted(ctx context.Context, key string, log *zap.Logger) bool {
	if w.seen == nil {
		return false
	}
	seen, err := w.seen.Seen(ctx, key)
	if err != nil {
		log.Warn("submitted-application check failed", zap.Error(err))
		return false
	}
	return seen
}

func (w *Worker) markSubmitted(ctx context.Context, key string, log *zap.Logger) {
	if w.seen == nil {
		return
	}
	if err := w.seen.Mark(context.WithoutCancel(ctx), key); err != nil {
		log.Warn("mark application submitted failed", zap.Error(err))
	}
}

func seenKey(candidateID, jobURL string) string {
	return "applied:" + candidateID + "|" + jobURL
}

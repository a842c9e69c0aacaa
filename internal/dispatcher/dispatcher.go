// Package dispatcher manages worker fan-out over the application queue.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/worker"
)

// ErrInvalidRequest marks submissions rejected before they reach the queue.
var ErrInvalidRequest = errors.New("invalid application request")

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   jobs.Queue
	workers []*worker.Worker
	ids     jobs.IDGenerator
	clock   jobs.Clock
}

// New creates a Dispatcher.
func New(queue jobs.Queue, workers []*worker.Worker, ids jobs.IDGenerator, clock jobs.Clock) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		ids:     ids,
		clock:   clock,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit validates and queues one application, returning the queued request.
func (d *Dispatcher) Submit(ctx context.Context, jobURL, candidateID string) (jobs.ApplicationRequest, error) {
	jobURL = strings.TrimSpace(jobURL)
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return jobs.ApplicationRequest{}, fmt.Errorf("%w: candidate_id is required", ErrInvalidRequest)
	}
	if u, err := url.Parse(jobURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return jobs.ApplicationRequest{}, fmt.Errorf("%w: job_url must be an absolute http(s) url", ErrInvalidRequest)
	}
	id, err := d.ids.NewID()
	if err != nil {
		return jobs.ApplicationRequest{}, fmt.Errorf("generate request id: %w", err)
	}
	req := jobs.ApplicationRequest{
		RequestID:   id,
		JobURL:      jobURL,
		CandidateID: candidateID,
		Submitted:   d.clock.Now().Unix(),
	}
	if err := d.Enqueue(ctx, req); err != nil {
		return jobs.ApplicationRequest{}, err
	}
	return req, nil
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, req jobs.ApplicationRequest) error {
	if err := d.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

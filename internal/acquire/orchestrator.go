// Package acquire runs source adapters, normalizes their output and writes
// new postings.
package acquire

import (
	"context"
	"fmt"
	"sync"
	"time"

	goerrors "github.com/go-errors/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
	"github.com/JakeFAU/jobswipe/internal/normalize"
)

// OrchestratorConfig bounds adapter runs.
type OrchestratorConfig struct {
	Concurrency    int
	AdapterTimeout time.Duration
	// ScanWindow is how many adapters one bounded scan visits.
	ScanWindow int
	// ScanBudget stops scheduling further adapters in a scan.
	ScanBudget time.Duration
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 2 * time.Minute
	}
	if c.ScanWindow <= 0 {
		c.ScanWindow = 2
	}
	if c.ScanBudget <= 0 {
		c.ScanBudget = 5 * time.Minute
	}
	return c
}

// Orchestrator runs adapters with bounded concurrency. One adapter failing,
// timing out or panicking never affects the others.
type Orchestrator struct {
	adapters []jobs.Adapter
	cfg      OrchestratorConfig
	clock    jobs.Clock
	logger   *zap.Logger

	mu     sync.Mutex
	cursor int
}

// NewOrchestrator wires an orchestrator.
func NewOrchestrator(adapters []jobs.Adapter, cfg OrchestratorConfig, clock jobs.Clock, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		adapters: adapters,
		cfg:      cfg.withDefaults(),
		clock:    clock,
		logger:   logger,
	}
}

// Adapters returns the configured adapter count.
func (o *Orchestrator) Adapters() int { return len(o.adapters) }

// Run executes every adapter and returns the concatenated postings in
// adapter order. Canceling ctx stops scheduling; adapters already running
// finish under their own timeout.
func (o *Orchestrator) Run(ctx context.Context) []jobs.Posting {
	return o.run(ctx, o.adapters)
}

// Scan runs the next window of adapters, rotating through the set across
// calls, and stops scheduling once the scan budget is spent.
func (o *Orchestrator) Scan(ctx context.Context) []jobs.Posting {
	window := o.nextWindow()
	if len(window) == 0 {
		return nil
	}
	budgetCtx, cancel := context.WithTimeout(ctx, o.cfg.ScanBudget)
	defer cancel()
	return o.run(budgetCtx, window)
}

func (o *Orchestrator) nextWindow() []jobs.Adapter {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.adapters)
	if n == 0 {
		return nil
	}
	size := min(o.cfg.ScanWindow, n)
	window := make([]jobs.Adapter, 0, size)
	for i := range size {
		window = append(window, o.adapters[(o.cursor+i)%n])
	}
	o.cursor = (o.cursor + size) % n
	return window
}

func (o *Orchestrator) run(ctx context.Context, adapters []jobs.Adapter) []jobs.Posting {
	results := make([][]jobs.Posting, len(adapters))
	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, adapter := range adapters {
		if ctx.Err() != nil {
			o.logger.Info("acquisition canceled, not scheduling remaining adapters",
				zap.Int("skipped", len(adapters)-i))
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = o.runAdapter(ctx, adapter)
			return nil
		})
	}
	_ = g.Wait()

	var out []jobs.Posting
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (o *Orchestrator) runAdapter(ctx context.Context, adapter jobs.Adapter) (postings []jobs.Posting) {
	name := adapter.Name()
	log := o.logger.With(zap.String("adapter", name))

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.AdapterTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err := goerrors.Wrap(rec, 2)
			log.Error("adapter panicked",
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("stack", string(err.Stack())),
			)
			metrics.ObserveAdapterFailure(name)
			postings = nil
		}
	}()

	start := time.Now()
	raws, err := adapter.FetchPostings(actx)
	if err != nil {
		log.Warn("adapter failed", zap.Error(err))
		metrics.ObserveAdapterFailure(name)
		return nil
	}

	now := o.now()
	postings = make([]jobs.Posting, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		p, err := normalize.Normalize(raw, now)
		if err != nil {
			rejected++
			log.Debug("record rejected", zap.String("url", raw.URL), zap.Error(err))
			continue
		}
		postings = append(postings, p)
	}
	metrics.ObserveAdapterRecords(name, len(postings))
	log.Info("adapter finished",
		zap.Int("records", len(postings)),
		zap.Int("rejected", rejected),
		zap.Duration("duration", time.Since(start)),
	)
	return postings
}

func (o *Orchestrator) now() time.Time {
	if o.clock == nil {
		return time.Now().UTC()
	}
	return o.clock.Now()
}

package acquire

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// RunStats reports one acquisition run.
type RunStats struct {
	Scraped int `json:"scraped"`
	Saved   int `json:"saved"`
}

// Service couples the orchestrator and writer for the startup hook, the
// periodic scan and on-demand refresh.
type Service struct {
	orchestrator *Orchestrator
	writer       *Writer
	logger       *zap.Logger
}

// NewService wires a service.
func NewService(o *Orchestrator, w *Writer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{orchestrator: o, writer: w, logger: logger}
}

// Refresh runs every adapter and saves the results.
func (s *Service) Refresh(ctx context.Context) (RunStats, error) {
	return s.save(ctx, s.orchestrator.Run(ctx))
}

// RefreshBounded runs one rotating scan window and saves the results.
func (s *Service) RefreshBounded(ctx context.Context) (RunStats, error) {
	return s.save(ctx, s.orchestrator.Scan(ctx))
}

func (s *Service) save(ctx context.Context, postings []jobs.Posting) (RunStats, error) {
	stats := RunStats{Scraped: len(postings)}
	// Writes outlive a canceled caller so scraped work is not thrown away.
	saved, err := s.writer.Save(context.WithoutCancel(ctx), postings)
	stats.Saved = saved
	if err != nil {
		s.logger.Error("acquisition save failed", zap.Int("scraped", stats.Scraped), zap.Int("saved", saved), zap.Error(err))
		return stats, err
	}
	s.logger.Info("acquisition run complete", zap.Int("scraped", stats.Scraped), zap.Int("saved", stats.Saved))
	return stats, nil
}

// RunPeriodic performs a bounded scan every interval until ctx is done.
// Ticks that fire during a slow scan are dropped.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RefreshBounded(ctx); err != nil {
				s.logger.Warn("periodic scan failed", zap.Error(err))
			}
		}
	}
}

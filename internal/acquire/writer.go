package acquire

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// DefaultBatchSize is the number of postings written per store call.
const DefaultBatchSize = 10

// PostingCreated is published for every newly inserted posting.
type PostingCreated struct {
	Event   string       `json:"event"`
	Posting jobs.Posting `json:"posting"`
}

// EventName labels the message for subscribers that filter on attributes.
func (e PostingCreated) EventName() string { return e.Event }

// Writer saves postings first-write-wins, one batch at a time, so a failure
// keeps the batches already written.
type Writer struct {
	store     jobs.PostingStore
	seen      jobs.SeenSet
	publisher jobs.Publisher
	topic     string
	clock     jobs.Clock
	batchSize int
	logger    *zap.Logger
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithSeenSet skips postings the cache already knows about before they reach
// the store.
func WithSeenSet(s jobs.SeenSet) WriterOption {
	return func(w *Writer) { w.seen = s }
}

// WithPublisher announces new postings on topic.
func WithPublisher(p jobs.Publisher, topic string) WriterOption {
	return func(w *Writer) {
		w.publisher = p
		w.topic = topic
	}
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// NewWriter wires a writer.
func NewWriter(store jobs.PostingStore, clock jobs.Clock, logger *zap.Logger, opts ...WriterOption) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{store: store, clock: clock, batchSize: DefaultBatchSize, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Save writes postings and returns how many were new. Zero is a valid
// result. On error the count covers the batches committed before it.
func (w *Writer) Save(ctx context.Context, postings []jobs.Posting) (int, error) {
	unique := dedupe(postings)
	saved := 0
	for start := 0; start < len(unique); start += w.batchSize {
		if err := ctx.Err(); err != nil {
			return saved, fmt.Errorf("save postings: %w", err)
		}
		end := min(start+w.batchSize, len(unique))
		batch := w.unseen(ctx, unique[start:end])
		if len(batch) == 0 {
			continue
		}
		now := w.now()
		for i := range batch {
			batch[i].CreatedAt = now
		}

		inserted, err := w.store.InsertPostings(ctx, batch)
		if err != nil {
			return saved, fmt.Errorf("insert batch at %d: %w", start, err)
		}
		saved += len(inserted)
		metrics.ObservePostingsSaved(len(inserted))
		w.markSeen(ctx, batch)
		w.announce(ctx, inserted)
	}
	w.logger.Info("postings saved", zap.Int("received", len(postings)), zap.Int("saved", saved))
	return saved, nil
}

func (w *Writer) unseen(ctx context.Context, batch []jobs.Posting) []jobs.Posting {
	out := make([]jobs.Posting, 0, len(batch))
	for _, p := range batch {
		if w.seen != nil {
			seen, err := w.seen.Seen(ctx, p.URL)
			if err != nil {
				w.logger.Warn("seen-set lookup failed", zap.String("url", p.URL), zap.Error(err))
			} else if seen {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func (w *Writer) markSeen(ctx context.Context, batch []jobs.Posting) {
	if w.seen == nil {
		return
	}
	keys := make([]string, 0, len(batch))
	for _, p := range batch {
		keys = append(keys, p.URL)
	}
	if err := w.seen.Mark(ctx, keys...); err != nil {
		w.logger.Warn("seen-set update failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

func (w *Writer) announce(ctx context.Context, inserted []jobs.Posting) {
	if w.publisher == nil || w.topic == "" {
		return
	}
	for _, p := range inserted {
		if _, err := w.publisher.Publish(ctx, w.topic, PostingCreated{Event: "posting.created", Posting: p}); err != nil {
			w.logger.Warn("publish posting failed", zap.String("url", p.URL), zap.Error(err))
		}
	}
}

func (w *Writer) now() time.Time {
	if w.clock == nil {
		return time.Now().UTC()
	}
	return w.clock.Now()
}

// dedupe keeps the first posting per URL.
func dedupe(postings []jobs.Posting) []jobs.Posting {
	seen := make(map[string]struct{}, len(postings))
	out := make([]jobs.Posting, 0, len(postings))
	for _, p := range postings {
		if _, ok := seen[p.URL]; ok {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	return out
}

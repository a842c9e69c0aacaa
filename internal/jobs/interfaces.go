package jobs

import (
	"context"
	"io"
	"time"
)

// Fetcher issues one logical GET with retry and classification.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Adapter fetches and parses one posting source.
type Adapter interface {
	Name() string
	FetchPostings(ctx context.Context) ([]RawRecord, error)
}

// PostingStore persists postings with first-write-wins semantics on URL.
type PostingStore interface {
	// InsertPostings inserts the batch atomically and returns only the rows
	// that did not already exist.
	InsertPostings(ctx context.Context, postings []Posting) ([]Posting, error)
	ListPostings(ctx context.Context, filter PostingFilter) ([]Posting, error)
}

// ErrorStore persists application and fetch failures.
type ErrorStore interface {
	RecordError(ctx context.Context, record ErrorRecord) error
	ListErrors(ctx context.Context, filter ErrorFilter) ([]ErrorRecord, error)
}

// CandidateStore loads and saves candidate profiles.
type CandidateStore interface {
	GetCandidate(ctx context.Context, id string) (CandidateProfile, error)
	SaveCandidate(ctx context.Context, candidate CandidateProfile) error
}

// SeenSet is a best-effort membership cache. Stores stay authoritative.
type SeenSet interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, keys ...string) error
}

// BlobStore writes artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue carries application requests to workers.
type Queue interface {
	Enqueue(ctx context.Context, request ApplicationRequest) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// QueueItem is one delivery. Ack and Nack may be nil for queues without
// redelivery.
type QueueItem struct {
	Request ApplicationRequest
	Attempt int
	Ack     func()
	Nack    func()
}

// Acknowledge confirms processing.
func (q QueueItem) Acknowledge() {
	if q.Ack != nil {
		q.Ack()
	}
}

// Reject asks the queue to redeliver.
func (q QueueItem) Reject() {
	if q.Nack != nil {
		q.Nack()
	}
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}

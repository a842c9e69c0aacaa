package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/queue/memory"
	storagememory "github.com/JakeFAU/jobswipe/internal/storage/memory"
	"github.com/JakeFAU/jobswipe/internal/worker"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type staticIDs struct{ err error }

func (s staticIDs) NewID() (string, error) { return "req-1", s.err }

// TestDispatcherRunStartsWorkers ensures workers begin processing and stop on cancel.
func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 1)}
	w := worker.New(queue, storagememory.NewCandidateStore(), nil, nil, worker.Config{}, zap.NewNop())
	dispatch := New(queue, []*worker.Worker{w}, staticIDs{}, fixedClock{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	select {
	case <-queue.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not begin dequeuing")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	queue := &errorQueue{err: errors.New("boom")}
	dispatch := New(queue, nil, staticIDs{}, fixedClock{})

	err := dispatch.Enqueue(context.Background(), jobs.ApplicationRequest{RequestID: "req"})
	if err == nil || err.Error() != "queue enqueue: boom" {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := dispatch.Submit(context.Background(), "https://example.com/job", "cand-1"); err == nil {
		t.Fatal("expected submit to surface the queue error")
	}
}

func TestDispatcherSubmit(t *testing.T) {
	t.Parallel()

	queue := memory.NewQueue(1)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dispatch := New(queue, nil, staticIDs{}, fixedClock{now: now})

	req, err := dispatch.Submit(context.Background(), " https://example.com/job ", "cand-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	want := jobs.ApplicationRequest{
		RequestID:   "req-1",
		JobURL:      "https://example.com/job",
		CandidateID: "cand-1",
		Submitted:   now.Unix(),
	}
	if req != want {
		t.Fatalf("Submit() = %+v, want %+v", req, want)
	}
	item, err := queue.Dequeue(context.Background())
	if err != nil || item.Request != want {
		t.Fatalf("queued %+v, %v", item.Request, err)
	}
}

func TestDispatcherSubmitValidation(t *testing.T) {
	t.Parallel()

	dispatch := New(memory.NewQueue(1), nil, staticIDs{}, fixedClock{})
	cases := []struct {
		name, url, candidate string
	}{
		{"missing candidate", "https://example.com/job", ""},
		{"relative url", "/jobs/1", "cand-1"},
		{"bad scheme", "ftp://example.com/job", "cand-1"},
	}
	for _, tc := range cases {
		if _, err := dispatch.Submit(context.Background(), tc.url, tc.candidate); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", tc.name, err)
		}
	}

	failing := New(memory.NewQueue(1), nil, staticIDs{err: errors.New("entropy")}, fixedClock{})
	if _, err := failing.Submit(context.Background(), "https://example.com/job", "cand-1"); err == nil ||
		errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected id generation error, got %v", err)
	}
}

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(context.Context, jobs.ApplicationRequest) error {
	select {
	case q.started <- struct{}{}:
	default:
	}
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (jobs.QueueItem, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return jobs.QueueItem{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, jobs.ApplicationRequest) error {
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (jobs.QueueItem, error) {
	return jobs.QueueItem{}, nil
}

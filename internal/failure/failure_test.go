package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("err-%d", s.n), nil
}

type failingStore struct{}

func (failingStore) RecordError(context.Context, jobs.ErrorRecord) error {
	return errors.New("db down")
}

func (failingStore) ListErrors(context.Context, jobs.ErrorFilter) ([]jobs.ErrorRecord, error) {
	return nil, nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want jobs.ErrorType
	}{
		{"nil", nil, jobs.ErrorUnknown},
		{"typed", ElementMissing("email"), jobs.ErrorElementMissing},
		{"wrapped typed", fmt.Errorf("workday: %w", SubmissionUnconfirmed(nil)), jobs.ErrorSubmissionUnconfirmed},
		{"deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), jobs.ErrorTransientNetwork},
		{"net error", timeoutErr{}, jobs.ErrorTransientNetwork},
		{"chrome net", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), jobs.ErrorTransientNetwork},
		{"node", errors.New("could not find node with given id"), jobs.ErrorElementMissing},
		{"upload", errors.New("set file input: Upload refused"), jobs.ErrorUploadFailed},
		{"other", errors.New("boom"), jobs.ErrorUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestNewCapturesStackAndField(t *testing.T) {
	t.Parallel()

	err := UploadFailed("resume", errors.New("file too large"))
	require.Equal(t, jobs.ErrorUploadFailed, err.Type)
	require.NotEmpty(t, err.StackTrace())
	require.Equal(t, "resume", FieldOf(fmt.Errorf("wrap: %w", err)))
	require.Contains(t, err.Error(), "upload_failed(resume)")
	require.Contains(t, err.Error(), "file too large")

	bogus := New(jobs.ErrorType("weird"), "", "x", nil)
	require.Equal(t, jobs.ErrorUnknown, bogus.Type)
}

func TestFromFetch(t *testing.T) {
	t.Parallel()

	require.Nil(t, FromFetch(jobs.FetchResult{Outcome: jobs.FetchSuccess}))
	require.Equal(t, jobs.ErrorBlocked, FromFetch(jobs.FetchResult{Outcome: jobs.FetchBlocked, StatusCode: 403}).Type)
	require.Equal(t, jobs.ErrorTransientNetwork, FromFetch(jobs.FetchResult{Outcome: jobs.FetchTransient, StatusCode: 500}).Type)
	require.Equal(t, jobs.ErrorUnknown, FromFetch(jobs.FetchResult{Outcome: jobs.FetchFatal, StatusCode: 404}).Type)
}

func TestRecorderPersists(t *testing.T) {
	t.Parallel()

	store := memory.NewErrorStore()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(store, &seqIDs{}, fixedClock{now}, nil)

	record, err := rec.Record(context.Background(), "https://acme.wd5.myworkdayjobs.com/job/1", "cand-1", SubmissionUnconfirmed(nil), "mem://snap")
	require.NoError(t, err)
	require.Equal(t, "err-1", record.ID)
	require.Equal(t, jobs.ErrorSubmissionUnconfirmed, record.Type)
	require.Equal(t, now, record.CreatedAt)

	list, err := store.ListErrors(context.Background(), jobs.ErrorFilter{CandidateID: "cand-1"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "https://acme.wd5.myworkdayjobs.com/job/1", list[0].JobURL)
	require.Equal(t, "mem://snap", list[0].SnapshotURI)
}

func TestRecorderReturnsRecordOnStoreFailure(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(failingStore{}, &seqIDs{}, fixedClock{time.Unix(0, 0)}, nil)
	record, err := rec.Record(context.Background(), "https://x/1", "c", ElementMissing("name"), "")
	require.Error(t, err)
	require.Equal(t, jobs.ErrorElementMissing, record.Type)
	require.Equal(t, "name", record.FieldName)
}

type stubFetcher struct{ res jobs.FetchResult }

func (s stubFetcher) Fetch(context.Context, string) jobs.FetchResult { return s.res }

func TestRecordingFetcher(t *testing.T) {
	t.Parallel()

	store := memory.NewErrorStore()
	rec := NewRecorder(store, &seqIDs{}, fixedClock{time.Unix(0, 0)}, nil)

	ok := NewRecordingFetcher(stubFetcher{jobs.FetchResult{Outcome: jobs.FetchSuccess}}, rec)
	require.True(t, ok.Fetch(context.Background(), "https://x/ok").OK())

	blocked := NewRecordingFetcher(stubFetcher{jobs.FetchResult{URL: "https://x/b", Outcome: jobs.FetchBlocked, StatusCode: 429}}, rec)
	res := blocked.Fetch(context.Background(), "https://x/b")
	require.Equal(t, jobs.FetchBlocked, res.Outcome)

	list, err := store.ListErrors(context.Background(), jobs.ErrorFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, jobs.ErrorBlocked, list[0].Type)
	require.Equal(t, "https://x/b", list[0].JobURL)
}

package apply

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobswipe/internal/clock/system"
	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/id/uuid"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/publisher/memory"
	storemem "github.com/JakeFAU/jobswipe/internal/storage/memory"
)

const workdayJob = "https://acme.wd5.myworkdayjobs.com/en-US/careers/job/SWE-Intern_R1"

type harness struct {
	engine     *Engine
	page       *fakePage
	errors     *storemem.ErrorStore
	candidates *storemem.CandidateStore
	blobs      *storemem.BlobStore
	published  *memory.Publisher
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		page:       newFakePage(),
		errors:     storemem.NewErrorStore(),
		candidates: storemem.NewCandidateStore(),
		blobs:      storemem.NewBlobStore(),
		published:  memory.New(),
	}
	clock := system.New()
	recorder := failure.NewRecorder(h.errors, uuid.New(), clock, nil)
	cfg := Config{
		AttemptTimeout: 5 * time.Second,
		Timing:         Timing{SubmitWait: 40 * time.Millisecond, PollInterval: 5 * time.Millisecond},
	}
	all := append([]Option{
		WithCandidateStore(h.candidates),
		WithSnapshots(h.blobs),
		WithPublisher(h.published, "applications"),
	}, opts...)
	h.engine = NewEngine(&fakeLauncher{page: h.page}, recorder, clock, cfg, nil, all...)
	return h
}

func candidate() *jobs.CandidateProfile {
	return &jobs.CandidateProfile{
		ID:        "cand-1",
		Name:      "Jane Q Doe",
		Email:     "jane@example.com",
		Phone:     "555-0100",
		Education: "State University",
	}
}

// readyWorkdayForm installs the application form and a submit button that
// shows the confirmation banner.
func readyWorkdayForm(p *fakePage) {
	p.addLocked(Identifier("firstName"), nil)
	p.addLocked(Identifier("lastName"), nil)
	p.addLocked(Identifier("email"), nil)
	p.addLocked(workdayNextButton, &fakeNode{onClick: func(p *fakePage) {
		p.addLocked(Text("Application Submitted"), nil)
	}})
}

func TestWorkdayRegistersThenApplies(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	registerFields := []Locator{Identifier("input-4"), Identifier("input-5"), Identifier("input-6")}
	for _, loc := range registerFields {
		h.page.add(loc, nil)
	}
	h.page.add(workdayCreateButton, &fakeNode{onClick: func(p *fakePage) {
		p.removeLocked(append(registerFields, workdayCreateButton)...)
		readyWorkdayForm(p)
	}})

	cand := candidate()
	outcome := h.engine.Apply(context.Background(), workdayJob, cand)

	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome.Error)
	require.Equal(t, jobs.PortalWorkday, outcome.Portal)
	require.NotNil(t, cand.Workday)
	require.Equal(t, "jane+workday@example.com", cand.Workday.Email)
	require.NotEmpty(t, cand.Workday.Password)

	stored, err := h.candidates.GetCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	require.Equal(t, cand.Workday.Email, stored.Workday.Email)

	require.Equal(t, "Jane", h.page.node(Identifier("firstName")).value)
	require.Equal(t, "Doe", h.page.node(Identifier("lastName")).value)
	require.True(t, h.page.isClosed())
	require.Equal(t, 1, h.page.clickCount(workdayNextButton))

	msgs := h.published.Messages()
	require.Len(t, msgs, 1)
	event, ok := msgs[0].Payload.(ApplicationFinished)
	require.True(t, ok)
	require.Equal(t, jobs.ApplicationSucceeded, event.Outcome.Status)
}

func TestWorkdayLoginWithoutCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(Identifier("input-1"), nil)
	h.page.add(Identifier("input-2"), nil)
	h.page.add(workdaySignInButton, nil)

	outcome := h.engine.Apply(context.Background(), workdayJob, candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorCredentialsMissing, outcome.Error.Type)
	require.Zero(t, h.page.clickCount(workdaySignInButton))
}

func TestWorkdayLoginWithStoredCredentials(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	emailInput := h.page.add(Identifier("input-1"), nil)
	h.page.add(Identifier("input-2"), nil)
	h.page.add(workdaySignInButton, &fakeNode{onClick: func(p *fakePage) {
		p.removeLocked(Identifier("input-1"), Identifier("input-2"), workdaySignInButton)
		readyWorkdayForm(p)
	}})

	cand := candidate()
	cand.Workday = &jobs.PortalCredentials{Email: "jane+workday@example.com", Password: "s3cret!"}
	outcome := h.engine.Apply(context.Background(), workdayJob, cand)
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome.Error)
	require.Equal(t, "jane+workday@example.com", emailInput.value)
}

func TestWorkdayRestartsAreBounded(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	for _, loc := range []Locator{Identifier("input-4"), Identifier("input-5"), Identifier("input-6")} {
		h.page.add(loc, nil)
	}
	// Registration never takes.
	h.page.add(workdayCreateButton, nil)

	outcome := h.engine.Apply(context.Background(), workdayJob, candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorElementMissing, outcome.Error.Type)
	require.Equal(t, "workday_apply_form", outcome.Error.FieldName)
	require.Equal(t, DefaultWorkdayRestarts, h.page.clickCount(workdayCreateButton))
}

func TestSubmissionTimeoutIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(Identifier("name"), nil)
	h.page.add(Identifier("email"), nil)
	h.page.add(CSS("button[type='submit']"), nil)

	jobURL := "https://careers.acme.example/jobs/42"
	outcome := h.engine.Apply(context.Background(), jobURL, candidate())

	require.Equal(t, jobs.ApplicationFailed, outcome.Status)
	require.Equal(t, jobs.ErrorSubmissionUnconfirmed, outcome.Error.Type)
	require.Equal(t, 1, h.page.clickCount(CSS("button[type='submit']")))

	records, err := h.errors.ListErrors(context.Background(), jobs.ErrorFilter{JobURL: jobURL})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, jobs.ErrorSubmissionUnconfirmed, records[0].Type)
	require.Equal(t, jobURL, records[0].JobURL)
	require.Equal(t, "cand-1", records[0].CandidateID)
	require.True(t, strings.HasPrefix(records[0].SnapshotURI, "memory://snapshots/cand-1/"))
	require.Equal(t, 1, h.blobs.Len())
}

func TestGenericRequiresNameAndEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(Identifier("email"), nil)

	outcome := h.engine.Apply(context.Background(), "https://careers.acme.example/jobs/7", candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorElementMissing, outcome.Error.Type)
	require.Equal(t, "name", outcome.Error.FieldName)
}

func TestGenericUploadsResume(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(Identifier("name"), nil)
	h.page.add(Identifier("email"), nil)
	fileInput := h.page.add(CSS("input[type='file']"), nil)
	h.page.add(CSS("button[type='submit']"), &fakeNode{onClick: func(p *fakePage) {
		p.addLocked(Text("thank you for applying"), nil)
	}})

	cand := candidate()
	cand.Resume = "/tmp/jane.pdf"
	outcome := h.engine.Apply(context.Background(), "https://careers.acme.example/jobs/8", cand)
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome.Error)
	require.Equal(t, "/tmp/jane.pdf", fileInput.uploaded)
}

func TestLinkedInWalksPages(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	pagesSeen := 0
	h.page.add(Text("Easy Apply"), nil)
	h.page.add(Text("Next"), &fakeNode{onClick: func(p *fakePage) {
		pagesSeen++
		if pagesSeen == 2 {
			p.removeLocked(Text("Next"))
			p.addLocked(Text("Submit application"), &fakeNode{onClick: func(p *fakePage) {
				p.addLocked(Text("Application submitted"), nil)
			}})
		}
	}})

	outcome := h.engine.Apply(context.Background(), "https://www.linkedin.com/jobs/view/123", candidate())
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome.Error)
	require.Equal(t, 2, pagesSeen)
}

func TestLinkedInPageBound(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(Text("Easy Apply"), nil)
	h.page.add(Text("Next"), nil)

	outcome := h.engine.Apply(context.Background(), "https://www.linkedin.com/jobs/view/9", candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorElementMissing, outcome.Error.Type)
	require.Equal(t, DefaultLinkedInPages, h.page.clickCount(Text("Next")))
}

func TestGitHubRedirectFollowsOneHop(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	target := "https://boards.greenhouse.io/acme/jobs/1"
	h.page.add(applyLink, &fakeNode{attrs: map[string]string{"href": target}})
	h.page.onNavigate = func(p *fakePage, url string) {
		if url != target {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		p.nodes = map[Locator]*fakeNode{}
		p.addLocked(Identifier("name"), nil)
		p.addLocked(Identifier("email"), nil)
		p.addLocked(CSS("button[type='submit']"), &fakeNode{onClick: func(p *fakePage) {
			p.addLocked(Text("application received"), nil)
		}})
	}

	outcome := h.engine.Apply(context.Background(), "https://github.com/SimplifyJobs/Summer2026-Internships", candidate())
	require.True(t, outcome.Succeeded(), "outcome: %+v", outcome.Error)
	require.Equal(t, jobs.PortalGitHubRedirect, outcome.Portal)
	require.Contains(t, h.page.navigated, target)
}

func TestGitHubRedirectRefusesSecondHop(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.page.add(applyLink, &fakeNode{attrs: map[string]string{"href": "/SimplifyJobs/other"}})

	outcome := h.engine.Apply(context.Background(), "https://github.com/SimplifyJobs/Summer2026-Internships", candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorUnknown, outcome.Error.Type)
	require.Equal(t, "apply_link", outcome.Error.FieldName)
}

type panickingWorkflow struct{}

func (panickingWorkflow) Kind() jobs.PortalKind { return jobs.PortalGeneric }

func (panickingWorkflow) Run(context.Context, *Env) error { panic("selector exploded") }

func TestWorkflowPanicBecomesFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, WithWorkflow(panickingWorkflow{}))
	outcome := h.engine.Apply(context.Background(), "https://careers.acme.example/jobs/1", candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorUnknown, outcome.Error.Type)
	require.True(t, h.page.isClosed())
}

func TestLauncherFailureIsRecorded(t *testing.T) {
	t.Parallel()

	errorStore := storemem.NewErrorStore()
	recorder := failure.NewRecorder(errorStore, uuid.New(), system.New(), nil)
	engine := NewEngine(&fakeLauncher{err: errors.New("chrome not found")}, recorder, system.New(), Config{}, nil)

	outcome := engine.Apply(context.Background(), "https://careers.acme.example/jobs/1", candidate())
	require.False(t, outcome.Succeeded())
	require.Equal(t, jobs.ErrorUnknown, outcome.Error.Type)
	list, err := errorStore.ListErrors(context.Background(), jobs.ErrorFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCallerCancelClosesSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.page.add(Identifier("name"), nil)
	h.page.add(Identifier("email"), nil)
	h.page.add(CSS("button[type='submit']"), &fakeNode{onClick: func(*fakePage) { cancel() }})

	outcome := h.engine.Apply(ctx, "https://careers.acme.example/jobs/3", candidate())
	require.False(t, outcome.Succeeded())
	require.True(t, h.page.isClosed())
	require.Zero(t, h.blobs.Len())
}

package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Workflow is the state machine for one portal family. Run returning nil
// means the application reached Submitted.
type Workflow interface {
	Kind() jobs.PortalKind
	Run(ctx context.Context, env *Env) error
}

// Timing bounds the waits inside a workflow.
type Timing struct {
	// SubmitWait is how long to wait for a confirmation marker.
	SubmitWait time.Duration
	// PollInterval spaces marker checks.
	PollInterval time.Duration
	// Settle is the pause after navigation-like clicks.
	Settle time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.SubmitWait <= 0 {
		t.SubmitWait = 20 * time.Second
	}
	if t.PollInterval <= 0 {
		t.PollInterval = 250 * time.Millisecond
	}
	if t.Settle < 0 {
		t.Settle = 0
	}
	return t
}

// Env is what a workflow operates on during one attempt.
type Env struct {
	Page       Page
	JobURL     string
	Candidate  *jobs.CandidateProfile
	ResumePath string
	Filler     *Filler
	Logger     *zap.Logger

	timing        Timing
	saveCandidate func(ctx context.Context) error
	lookup        func(kind jobs.PortalKind) Workflow
}

// NewEnv builds an environment for tests and the engine.
func NewEnv(page Page, jobURL string, candidate *jobs.CandidateProfile, timing Timing, logger *zap.Logger) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Env{
		Page:      page,
		JobURL:    jobURL,
		Candidate: candidate,
		Filler:    NewFiller(page, logger),
		Logger:    logger,
		timing:    timing.withDefaults(),
	}
}

// Answerer returns an answerer over rules plus the candidate's own answers.
func (e *Env) Answerer(rules []Rule) *Answerer {
	var answers map[string]string
	if e.Candidate != nil {
		answers = e.Candidate.Answers
	}
	return NewAnswerer(e.Page, e.Logger, rules, answers)
}

// SaveCandidate persists changes the workflow made to the candidate, such as
// newly created portal credentials.
func (e *Env) SaveCandidate(ctx context.Context) error {
	if e.saveCandidate == nil {
		return nil
	}
	return e.saveCandidate(ctx)
}

func (e *Env) settle(ctx context.Context) error {
	if e.timing.Settle <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.timing.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// find returns the first locator that resolves.
func (e *Env) find(ctx context.Context, locs ...Locator) (Element, bool, error) {
	for _, loc := range locs {
		el, ok, err := e.Page.Find(ctx, loc)
		if err != nil {
			return Element{}, false, fmt.Errorf("find %s: %w", loc, err)
		}
		if ok {
			return el, true, nil
		}
	}
	return Element{}, false, nil
}

// waitFor polls until any locator resolves or timeout passes.
func (e *Env) waitFor(ctx context.Context, timeout time.Duration, locs ...Locator) (Element, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, ok, err := e.find(ctx, locs...)
		if err != nil || ok {
			return el, ok, err
		}
		if !time.Now().Before(deadline) {
			return Element{}, false, nil
		}
		timer := time.NewTimer(e.timing.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Element{}, false, ctx.Err()
		case <-timer.C:
		}
	}
}

// confirm waits for a positive submission marker. Anything short of one is
// SubmissionUnconfirmed, unless ctx ended first.
func (e *Env) confirm(ctx context.Context, markers ...Locator) error {
	_, ok, err := e.waitFor(ctx, e.timing.SubmitWait, markers...)
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("await confirmation: %w", ctx.Err())
	case err != nil:
		return err
	case !ok:
		return failure.SubmissionUnconfirmed(nil)
	}
	e.Logger.Info("submission confirmed")
	return nil
}

// clickIfPresent clicks the first locator that resolves.
func (e *Env) clickIfPresent(ctx context.Context, locs ...Locator) (bool, error) {
	el, ok, err := e.find(ctx, locs...)
	if err != nil || !ok {
		return false, err
	}
	if err := e.Page.Click(ctx, el); err != nil {
		return false, fmt.Errorf("click %s: %w", locs[0], err)
	}
	return true, nil
}

// click clicks a control the workflow cannot continue without.
func (e *Env) click(ctx context.Context, name string, locs ...Locator) error {
	ok, err := e.clickIfPresent(ctx, locs...)
	if err != nil {
		return err
	}
	if !ok {
		return failure.ElementMissing(name)
	}
	return nil
}

// uploadResume attaches the résumé when the candidate has one and the form
// has a file input.
func (e *Env) uploadResume(ctx context.Context, locs ...Locator) error {
	if e.ResumePath == "" {
		return nil
	}
	el, ok, err := e.find(ctx, locs...)
	if err != nil {
		return err
	}
	if !ok {
		e.Logger.Debug("no resume input on form")
		return nil
	}
	if err := e.Page.Upload(ctx, el, e.ResumePath); err != nil {
		return failure.UploadFailed("resume", err)
	}
	return nil
}

func (e *Env) candidate() jobs.CandidateProfile {
	if e.Candidate == nil {
		return jobs.CandidateProfile{}
	}
	return *e.Candidate
}

// splitName returns the first and last words of a full name.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], parts[len(parts)-1]
	}
}

var errRedirectLoop = errors.New("redirect resolved to another redirect page")

func (e *Env) workflow(kind jobs.PortalKind) Workflow {
	if e.lookup != nil {
		if w := e.lookup(kind); w != nil {
			return w
		}
	}
	return DefaultWorkflows()[kind]
}

// DefaultWorkflows returns one workflow per portal kind.
func DefaultWorkflows() map[jobs.PortalKind]Workflow {
	return map[jobs.PortalKind]Workflow{
		jobs.PortalWorkday:        Workday{MaxRestarts: DefaultWorkdayRestarts},
		jobs.PortalIndeed:         Indeed{},
		jobs.PortalLinkedIn:       LinkedIn{MaxPages: DefaultLinkedInPages},
		jobs.PortalGitHubRedirect: GitHubRedirect{},
		jobs.PortalGeneric:        Generic{},
	}
}

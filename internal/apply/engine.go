package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/hash/sha256"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
)

// ApplicationFinished is published after every attempt.
type ApplicationFinished struct {
	Event   string                  `json:"event"`
	Outcome jobs.ApplicationOutcome `json:"outcome"`
}

// EventName labels the message for subscribers that filter on attributes.
func (e ApplicationFinished) EventName() string { return e.Event }

// ResumeResolver turns a résumé reference into a local file.
type ResumeResolver interface {
	Resolve(ctx context.Context, ref string) (string, func(), error)
}

// Config bounds an attempt.
type Config struct {
	AttemptTimeout time.Duration
	Timing         Timing
	// SnapshotPrefix is the blob path prefix for failure page captures.
	SnapshotPrefix string
}

func (c Config) withDefaults() Config {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 3 * time.Minute
	}
	if c.SnapshotPrefix == "" {
		c.SnapshotPrefix = "snapshots"
	}
	c.Timing = c.Timing.withDefaults()
	return c
}

// Engine runs one application attempt per call, each in its own browser
// session.
type Engine struct {
	launcher   Launcher
	recorder   *failure.Recorder
	clock      jobs.Clock
	cfg        Config
	logger     *zap.Logger
	workflows  map[jobs.PortalKind]Workflow
	candidates jobs.CandidateStore
	snapshots  jobs.BlobStore
	resumes    ResumeResolver
	publisher  jobs.Publisher
	topic      string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCandidateStore persists credentials created during an attempt.
func WithCandidateStore(s jobs.CandidateStore) Option {
	return func(e *Engine) { e.candidates = s }
}

// WithSnapshots stores the page HTML of failed attempts.
func WithSnapshots(b jobs.BlobStore) Option {
	return func(e *Engine) { e.snapshots = b }
}

// WithResumeResolver fetches remote résumés before upload steps.
func WithResumeResolver(r ResumeResolver) Option {
	return func(e *Engine) { e.resumes = r }
}

// WithPublisher announces outcomes on topic.
func WithPublisher(p jobs.Publisher, topic string) Option {
	return func(e *Engine) {
		e.publisher = p
		e.topic = topic
	}
}

// WithWorkflow replaces the workflow for w.Kind().
func WithWorkflow(w Workflow) Option {
	return func(e *Engine) { e.workflows[w.Kind()] = w }
}

// NewEngine wires an engine.
func NewEngine(launcher Launcher, recorder *failure.Recorder, clock jobs.Clock, cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		launcher:  launcher,
		recorder:  recorder,
		clock:     clock,
		cfg:       cfg.withDefaults(),
		logger:    logger.Named("apply"),
		workflows: DefaultWorkflows(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply submits candidate to the posting at jobURL. Every failure ends in a
// Failed outcome carrying a persisted ErrorRecord; Apply itself never fails.
// Credentials created along the way are written back into candidate.
func (e *Engine) Apply(ctx context.Context, jobURL string, candidate *jobs.CandidateProfile) jobs.ApplicationOutcome {
	kind := Classify(jobURL)
	outcome := jobs.ApplicationOutcome{
		JobURL:    jobURL,
		Portal:    kind,
		StartedAt: e.clock.Now(),
	}
	if candidate != nil {
		outcome.CandidateID = candidate.ID
	}
	log := e.logger.With(
		zap.String("job_url", jobURL),
		zap.String("candidate_id", outcome.CandidateID),
		zap.String("portal", string(kind)),
	)

	snapshotURI, err := e.attempt(ctx, jobURL, candidate, kind, log)
	outcome.FinishedAt = e.clock.Now()
	if err == nil {
		outcome.Status = jobs.ApplicationSucceeded
		log.Info("application submitted", zap.Duration("duration", outcome.FinishedAt.Sub(outcome.StartedAt)))
	} else {
		outcome.Status = jobs.ApplicationFailed
		record, recErr := e.recorder.Record(ctx, jobURL, outcome.CandidateID, err, snapshotURI)
		if recErr != nil {
			log.Warn("error record not persisted", zap.Error(recErr))
		}
		outcome.Error = &record
	}
	metrics.ObserveApplication(string(kind), string(outcome.Status))
	e.publish(ctx, outcome, log)
	return outcome
}

func (e *Engine) attempt(ctx context.Context, jobURL string, candidate *jobs.CandidateProfile, kind jobs.PortalKind, log *zap.Logger) (snapshotURI string, err error) {
	if candidate == nil {
		return "", failure.New(jobs.ErrorUnknown, "", "no candidate profile", nil)
	}
	actx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()

	session, err := e.launcher.NewSession(actx)
	if err != nil {
		return "", fmt.Errorf("open browser session: %w", err)
	}
	metrics.IncBrowserSessions()
	defer metrics.DecBrowserSessions()
	defer func() { _ = session.Close() }()
	// A caller abort kills the tab right away.
	stop := context.AfterFunc(ctx, func() { _ = session.Close() })
	defer stop()

	resumePath := candidate.Resume
	if resumePath != "" && e.resumes != nil {
		path, cleanup, rerr := e.resumes.Resolve(actx, resumePath)
		if rerr != nil {
			return "", failure.UploadFailed("resume", rerr)
		}
		defer cleanup()
		resumePath = path
	}

	env := NewEnv(session, jobURL, candidate, e.cfg.Timing, log)
	env.ResumePath = resumePath
	env.lookup = func(k jobs.PortalKind) Workflow { return e.workflows[k] }
	env.saveCandidate = func(sctx context.Context) error {
		if e.candidates == nil {
			return nil
		}
		return e.candidates.SaveCandidate(context.WithoutCancel(sctx), *candidate)
	}

	err = e.run(actx, env, kind, jobURL)
	if err != nil && ctx.Err() == nil {
		snapshotURI = e.snapshot(ctx, session, jobURL, candidate.ID, log)
	}
	return snapshotURI, err
}

func (e *Engine) run(ctx context.Context, env *Env, kind jobs.PortalKind, jobURL string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stackErr := goerrors.Wrap(rec, 2)
			env.Logger.Error("workflow panicked",
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("stack", string(stackErr.Stack())),
			)
			err = failure.New(jobs.ErrorUnknown, "", "workflow panicked", stackErr)
		}
	}()
	if err := env.Page.Navigate(ctx, jobURL); err != nil {
		return fmt.Errorf("navigate %s: %w", jobURL, err)
	}
	wf := env.workflow(kind)
	if wf == nil {
		return failure.New(jobs.ErrorUnknown, "", fmt.Sprintf("no workflow for %s", kind), nil)
	}
	return wf.Run(ctx, env)
}

func (e *Engine) snapshot(ctx context.Context, page Page, jobURL, candidateID string, log *zap.Logger) string {
	if e.snapshots == nil {
		return ""
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	html, err := page.HTML(sctx)
	if err != nil {
		log.Warn("snapshot capture failed", zap.Error(err))
		return ""
	}
	owner := candidateID
	if owner == "" {
		owner = "anonymous"
	}
	path := fmt.Sprintf("%s/%s/%s-%s.html",
		strings.TrimSuffix(e.cfg.SnapshotPrefix, "/"),
		owner,
		e.clock.Now().UTC().Format("20060102T150405.000"),
		sha256.Sum(jobURL)[:12],
	)
	uri, err := e.snapshots.PutObject(sctx, path, "text/html; charset=utf-8", strings.NewReader(html))
	if err != nil {
		log.Warn("snapshot upload failed", zap.Error(err))
		return ""
	}
	return uri
}

func (e *Engine) publish(ctx context.Context, outcome jobs.ApplicationOutcome, log *zap.Logger) {
	if e.publisher == nil {
		return
	}
	_, err := e.publisher.Publish(context.WithoutCancel(ctx), e.topic, ApplicationFinished{
		Event:   "application.finished",
		Outcome: outcome,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("publish outcome failed", zap.Error(err))
	}
}

package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/acquire"
	"github.com/JakeFAU/jobswipe/internal/apply"
	"github.com/JakeFAU/jobswipe/internal/browser"
	cachememory "github.com/JakeFAU/jobswipe/internal/cache/memory"
	"github.com/JakeFAU/jobswipe/internal/cache/redis"
	"github.com/JakeFAU/jobswipe/internal/clock/system"
	"github.com/JakeFAU/jobswipe/internal/config"
	"github.com/JakeFAU/jobswipe/internal/dispatcher"
	"github.com/JakeFAU/jobswipe/internal/failure"
	"github.com/JakeFAU/jobswipe/internal/fetcher"
	collyfetcher "github.com/JakeFAU/jobswipe/internal/fetcher/colly"
	"github.com/JakeFAU/jobswipe/internal/headless/detector"
	"github.com/JakeFAU/jobswipe/internal/id/uuid"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/jobswipe/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/jobswipe/internal/queue/memory"
	pubsubqueue "github.com/JakeFAU/jobswipe/internal/queue/pubsub"
	"github.com/JakeFAU/jobswipe/internal/resume"
	"github.com/JakeFAU/jobswipe/internal/source/catalog"
	"github.com/JakeFAU/jobswipe/internal/source/dom"
	gcsstorage "github.com/JakeFAU/jobswipe/internal/storage/gcs"
	localstorage "github.com/JakeFAU/jobswipe/internal/storage/local"
	memoryStorage "github.com/JakeFAU/jobswipe/internal/storage/memory"
	"github.com/JakeFAU/jobswipe/internal/storage/postgres"
	"github.com/JakeFAU/jobswipe/internal/storage/sqlite"
	"github.com/JakeFAU/jobswipe/internal/worker"
)

// Pub/Sub caps ack deadlines at ten minutes; the client extends leases
// beyond that on its own.
const maxAckDeadline = 10 * time.Minute

type storeSet struct {
	postings   jobs.PostingStore
	errors     jobs.ErrorStore
	candidates jobs.CandidateStore
}

type pipelineDeps struct {
	stores    storeSet
	blobs     jobs.BlobStore
	remote    resume.RemoteOpener
	seen      jobs.SeenSet
	publisher jobs.Publisher
}

// browserPool is what both the DOM adapters and the engine need from a
// browser.
type browserPool interface {
	apply.Launcher
	dom.Renderer
}

func setupStores(ctx context.Context, app *App) (storeSet, error) {
	switch app.cfg.Storage.Driver {
	case "postgres":
		app.logger.Info("using postgres record store")
		store, err := postgres.New(ctx, postgres.Config{
			DSN:             app.cfg.DB.DSN,
			MaxConns:        app.cfg.DB.MaxConns,
			MinConns:        app.cfg.DB.MinConns,
			MaxConnLifetime: app.cfg.DB.MaxConnLifetime,
			Tables: postgres.Tables{
				Postings:   app.cfg.DB.PostingsTable,
				Errors:     app.cfg.DB.ErrorsTable,
				Candidates: app.cfg.DB.CandidatesTable,
			},
		})
		if err != nil {
			return storeSet{}, fmt.Errorf("postgres store init failed: %w", err)
		}
		app.postgres = store
		if err := store.EnsureSchema(ctx); err != nil {
			return storeSet{}, fmt.Errorf("postgres schema init failed: %w", err)
		}
		app.checks["postgres"] = store.Ping
		return storeSet{postings: store, errors: store, candidates: store}, nil
	case "sqlite":
		app.logger.Info("using sqlite record store", zap.String("path", app.cfg.Storage.SQLitePath))
		store, err := sqlite.Open(ctx, app.cfg.Storage.SQLitePath)
		if err != nil {
			return storeSet{}, fmt.Errorf("sqlite store init failed: %w", err)
		}
		app.sqlite = store
		app.checks["sqlite"] = store.Ping
		return storeSet{postings: store, errors: store, candidates: store}, nil
	default:
		app.logger.Info("using in-memory record store")
		return storeSet{
			postings:   memoryStorage.NewPostingStore(),
			errors:     memoryStorage.NewErrorStore(),
			candidates: memoryStorage.NewCandidateStore(),
		}, nil
	}
}

func setupBlobs(ctx context.Context, app *App) (jobs.BlobStore, resume.RemoteOpener, error) {
	switch app.cfg.Storage.BlobDriver {
	case "gcs":
		app.logger.Info("using GCS blob store", zap.String("bucket", app.cfg.Storage.GCSBucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: app.cfg.Storage.GCSBucket,
			Prefix: app.cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return store, store, nil
	case "local":
		app.logger.Info("using local blob store", zap.String("path", app.cfg.Storage.BlobDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.BlobDir})
		if err != nil {
			return nil, nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil, nil
	default:
		app.logger.Info("using in-memory blob store")
		return memoryStorage.NewBlobStore(), nil, nil
	}
}

func setupCache(ctx context.Context, app *App) (jobs.SeenSet, error) {
	switch app.cfg.Cache.Driver {
	case "redis":
		app.logger.Info("using redis seen-set", zap.String("addr", app.cfg.Cache.Addr))
		seen, err := redis.New(ctx, redis.Options{
			Addr:     app.cfg.Cache.Addr,
			Password: app.cfg.Cache.Password,
			DB:       app.cfg.Cache.DB,
			Prefix:   app.cfg.Cache.Prefix,
			TTL:      app.cfg.Cache.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("redis seen-set init failed: %w", err)
		}
		app.seenCloser = seen.Close
		app.checks["redis"] = seen.Ping
		return seen, nil
	case "memory":
		app.logger.Info("using in-memory seen-set", zap.Duration("ttl", app.cfg.Cache.TTL))
		return cachememory.New(app.cfg.Cache.TTL), nil
	default:
		app.logger.Warn("seen-set disabled; duplicate guards fall back to the stores")
		return nil, nil
	}
}

func setupPubSub(ctx context.Context, app *App) (jobs.Publisher, error) {
	if !app.cfg.UsesPubSub() {
		app.logger.Warn("no Pub/Sub project configured, events are not published")
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubClient = client
	app.publisher = gcppublisher.New(client)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("postings_topic", app.cfg.Acquisition.Topic),
		zap.String("applications_topic", app.cfg.Apply.Topic),
	)
	return app.publisher, nil
}

func setupQueue(ctx context.Context, app *App) error {
	if app.cfg.Apply.Queue != "pubsub" {
		app.queue = queueMemory.NewQueue(app.cfg.Apply.QueueDepth)
		app.logger.Info("using in-memory application queue", zap.Int("depth", app.cfg.Apply.QueueDepth))
		return nil
	}
	if app.pubsubClient == nil {
		return fmt.Errorf("pubsub queue requires a pubsub client")
	}
	topic, err := ensureTopic(ctx, app.pubsubClient, app.cfg.PubSub.RequestsTopic)
	if err != nil {
		return err
	}
	sub, err := ensureSubscription(ctx, app.pubsubClient, topic, app.cfg.PubSub.Subscription, ackDeadline(app.cfg.Apply.AttemptTimeout))
	if err != nil {
		topic.Stop()
		return err
	}
	q := pubsubqueue.New(topic, sub, app.cfg.PubSub.MaxOutstanding, app.logger.Named("queue"))
	app.queue = q
	app.receive = q.Receive
	app.logger.Info("using Pub/Sub application queue",
		zap.String("topic", app.cfg.PubSub.RequestsTopic),
		zap.String("subscription", app.cfg.PubSub.Subscription),
	)
	return nil
}

func ensureTopic(ctx context.Context, client *pubsub.Client, id string) (*pubsub.Topic, error) {
	topic := client.Topic(id)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", id, err)
	}
	if exists {
		return topic, nil
	}
	topic, err = client.CreateTopic(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create topic %s: %w", id, err)
	}
	return topic, nil
}

func ensureSubscription(
	ctx context.Context,
	client *pubsub.Client,
	topic *pubsub.Topic,
	id string,
	deadline time.Duration,
) (*pubsub.Subscription, error) {
	sub := client.Subscription(id)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", id, err)
	}
	if exists {
		return sub, nil
	}
	sub, err = client.CreateSubscription(ctx, id, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription %s: %w", id, err)
	}
	return sub, nil
}

func ackDeadline(attempt time.Duration) time.Duration {
	d := attempt + time.Minute
	if d < 10*time.Second {
		d = 10 * time.Second
	}
	return min(d, maxAckDeadline)
}

func fetcherConfig(fc config.FetcherConfig) collyfetcher.Config {
	return collyfetcher.Config{
		Config: fetcher.Config{
			UserAgents:     fc.UserAgents,
			Timeout:        fc.Timeout,
			MaxAttempts:    fc.MaxAttempts,
			BackoffInitial: fc.BackoffInitial,
			BackoffMax:     fc.BackoffMax,
			JitterMin:      fc.JitterMin,
			JitterMax:      fc.JitterMax,
		},
		RespectRobots: fc.RespectRobots,
	}
}

func hostRates(rates []config.HostRate) map[string]float64 {
	out := make(map[string]float64, len(rates))
	for _, r := range rates {
		if host := strings.ToLower(strings.TrimSpace(r.Host)); host != "" {
			out[host] = r.RPS
		}
	}
	return out
}

func setupBrowser(app *App) (browserPool, dom.Renderer) {
	if !app.cfg.Headless.Enabled {
		app.logger.Info("headless browser disabled; portal applications will fail fast")
		return browser.NewNoop(), nil
	}
	launcher, err := browser.NewChromedp(browser.Config{
		MaxParallel:       app.cfg.Headless.MaxParallel,
		UserAgent:         app.cfg.Headless.UserAgent,
		NavigationTimeout: app.cfg.Headless.NavigationTimeout,
		ExecPath:          app.cfg.Headless.ExecPath,
	}, app.logger.Named("browser"))
	if err != nil {
		app.logger.Warn("headless browser init failed", zap.Error(err))
		return browser.NewNoop(), nil
	}
	app.launcher = launcher
	app.logger.Info("using headless browser", zap.Int("max_parallel", app.cfg.Headless.MaxParallel))
	return launcher, launcher
}

func setupPipelines(app *App, deps pipelineDeps) error {
	cfg := app.cfg
	clock := system.New()
	ids := uuid.New()

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:     cfg.Fetcher.RateLimit,
		DefaultBurst:   cfg.Fetcher.RateBurst,
		HostRPS:        hostRates(cfg.Fetcher.HostRateLimits),
		BlockThreshold: cfg.Fetcher.BlockThreshold,
		BlockTTL:       cfg.Fetcher.BlockTTL,
	})
	recorder := failure.NewRecorder(deps.stores.errors, ids, clock, app.logger)
	base := collyfetcher.New(fetcherConfig(cfg.Fetcher), limiter, app.logger.Named("fetcher"))
	fetch := failure.NewRecordingFetcher(base, recorder)

	pool, renderer := setupBrowser(app)

	adapters, err := catalog.Build(cfg.Acquisition.Sources, catalog.Deps{
		Fetcher:  fetch,
		Renderer: renderer,
		Promoter: detector.NewHeuristic(cfg.Headless.PromotionThreshold),
		Keywords: cfg.Acquisition.Keywords,
		Logger:   app.logger.Named("source"),
	})
	if err != nil {
		return fmt.Errorf("source catalog init failed: %w", err)
	}

	orchestrator := acquire.NewOrchestrator(adapters, acquire.OrchestratorConfig{
		Concurrency:    cfg.Acquisition.Concurrency,
		AdapterTimeout: cfg.Acquisition.AdapterTimeout,
		ScanWindow:     cfg.Acquisition.ScanWindow,
		ScanBudget:     cfg.Acquisition.ScanBudget,
	}, clock, app.logger.Named("acquire"))
	writerOpts := []acquire.WriterOption{acquire.WithBatchSize(cfg.Acquisition.BatchSize)}
	if deps.seen != nil {
		writerOpts = append(writerOpts, acquire.WithSeenSet(deps.seen))
	}
	if deps.publisher != nil {
		writerOpts = append(writerOpts, acquire.WithPublisher(deps.publisher, cfg.Acquisition.Topic))
	}
	writer := acquire.NewWriter(deps.stores.postings, clock, app.logger.Named("writer"), writerOpts...)
	app.service = acquire.NewService(orchestrator, writer, app.logger.Named("acquire"))

	engineOpts := []apply.Option{
		apply.WithCandidateStore(deps.stores.candidates),
		apply.WithSnapshots(deps.blobs),
		apply.WithResumeResolver(resume.NewResolver(deps.remote, cfg.Apply.ResumeTempDir)),
		apply.WithWorkflow(apply.Workday{MaxRestarts: cfg.Apply.WorkdayRestarts}),
		apply.WithWorkflow(apply.LinkedIn{MaxPages: cfg.Apply.LinkedInPages}),
	}
	if deps.publisher != nil {
		engineOpts = append(engineOpts, apply.WithPublisher(deps.publisher, cfg.Apply.Topic))
	}
	engine := apply.NewEngine(pool, recorder, clock, apply.Config{
		AttemptTimeout: cfg.Apply.AttemptTimeout,
		Timing: apply.Timing{
			SubmitWait:   cfg.Apply.SubmitWait,
			PollInterval: cfg.Apply.PollInterval,
			Settle:       cfg.Apply.Settle,
		},
		SnapshotPrefix: cfg.Apply.SnapshotPrefix,
	}, app.logger, engineOpts...)

	workerCfg := worker.Config{MaxDeliveries: cfg.Apply.MaxDeliveries}
	workers := make([]*worker.Worker, 0, cfg.Apply.Workers)
	for i := 0; i < cfg.Apply.Workers; i++ {
		workers = append(workers, worker.New(
			app.queue,
			deps.stores.candidates,
			engine,
			deps.seen,
			workerCfg,
			app.logger.With(zap.Int("worker", i)),
		))
	}
	app.dispatch = dispatcher.New(app.queue, workers, ids, clock)
	return nil
}

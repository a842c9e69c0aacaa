// Package server builds the application's dependencies and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobswipe/internal/acquire"
	"github.com/JakeFAU/jobswipe/internal/api"
	"github.com/JakeFAU/jobswipe/internal/browser"
	"github.com/JakeFAU/jobswipe/internal/config"
	"github.com/JakeFAU/jobswipe/internal/dispatcher"
	"github.com/JakeFAU/jobswipe/internal/jobs"
	"github.com/JakeFAU/jobswipe/internal/metrics"
	gcppublisher "github.com/JakeFAU/jobswipe/internal/publisher/pubsub"
	"github.com/JakeFAU/jobswipe/internal/storage/postgres"
	"github.com/JakeFAU/jobswipe/internal/storage/sqlite"
)

// closableQueue is a jobs.Queue that can be shut down.
type closableQueue interface {
	jobs.Queue
	Close()
}

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	apiServer *api.Server
	service   *acquire.Service
	dispatch  *dispatcher.Dispatcher
	queue     closableQueue
	// receive pumps a broker subscription into queue; nil for in-process queues.
	receive func(ctx context.Context) error

	launcher     *browser.Launcher
	pubsubClient *pubsub.Client
	publisher    *gcppublisher.Publisher
	storage      *storage.Client
	postgres     *postgres.Store
	sqlite       *sqlite.Store
	seenCloser   func() error
	checks       map[string]api.ReadinessCheck
}

// NewApp creates an empty App with the given configuration.
func NewApp(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("queue", cfg.Apply.Queue),
		zap.Int("sources", len(cfg.Acquisition.Sources)),
	)
	return &App{
		cfg:    cfg,
		logger: logger,
		checks: map[string]api.ReadinessCheck{},
	}
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts background work and the HTTP server, and blocks until the
// context is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		a.logger.Info("dispatcher started", zap.Int("workers", a.cfg.Apply.Workers))
		a.dispatch.Run(ctx)
	}()

	if a.receive != nil {
		go func() {
			a.logger.Info("queue subscription started", zap.String("subscription", a.cfg.PubSub.Subscription))
			if err := a.receive(ctx); err != nil {
				a.logger.Error("queue subscription stopped", zap.Error(err))
				stop()
			}
		}()
	}

	go a.runAcquisition(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

func (a *App) runAcquisition(ctx context.Context) {
	if a.cfg.Acquisition.RefreshOnStartup {
		if _, err := a.service.Refresh(ctx); err != nil {
			a.logger.Warn("startup refresh failed", zap.Error(err))
		}
	}
	a.service.RunPeriodic(ctx, a.cfg.Acquisition.Interval)
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete", zap.Bool("deadline_hit", ctx.Err() != nil))
	return nil
}

//nolint:gocognit // Shutdown logic is linear but extensive, ignoring complexity check
func (a *App) closeInfrastructure() {
	if a.launcher != nil {
		a.launcher.Close()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.seenCloser != nil {
		if err := a.seenCloser(); err != nil {
			a.logger.Warn("seen-set close failed", zap.Error(err))
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			a.logger.Warn("sqlite close failed", zap.Error(err))
		}
	}
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()
	app := NewApp(cfg, logger)
	app.logger.Info("building application dependencies")

	stores, err := setupStores(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	blobs, remote, err := setupBlobs(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	seen, err := setupCache(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	publisher, err := setupPubSub(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	if err := setupQueue(ctx, app); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	deps := pipelineDeps{
		stores:    stores,
		blobs:     blobs,
		remote:    remote,
		seen:      seen,
		publisher: publisher,
	}
	if err := setupPipelines(app, deps); err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	app.apiServer = api.NewServer(api.Deps{
		Refresher:  app.service,
		Submitter:  app.dispatch,
		Postings:   stores.postings,
		Errors:     stores.errors,
		Candidates: stores.candidates,
		Checks:     app.checks,
	}, cfg, app.logger.Named("api"))

	return app, nil
}

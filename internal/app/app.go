// Package app wires the service's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/api"
	"github.com/indexpilot/indexpilot/internal/archive"
	"github.com/indexpilot/indexpilot/internal/config"
	"github.com/indexpilot/indexpilot/internal/discovery"
	"github.com/indexpilot/indexpilot/internal/fetch"
	"github.com/indexpilot/indexpilot/internal/gsc"
	"github.com/indexpilot/indexpilot/internal/notify"
	"github.com/indexpilot/indexpilot/internal/notify/events"
	"github.com/indexpilot/indexpilot/internal/pipeline"
	"github.com/indexpilot/indexpilot/internal/queue"
	"github.com/indexpilot/indexpilot/internal/reaper"
	"github.com/indexpilot/indexpilot/internal/scheduler"
	"github.com/indexpilot/indexpilot/internal/sitemap"
	"github.com/indexpilot/indexpilot/internal/store"
	pgstore "github.com/indexpilot/indexpilot/internal/store/postgres"
)

// App holds the wired service components.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	store        store.Store
	archive      archive.Store
	events       events.Publisher
	orchestrator *pipeline.Orchestrator
	queue        *queue.Queue
	scheduler    *scheduler.Scheduler
	reaper       *reaper.Reaper
	apiServer    *api.Server
}

// New wires every component from configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using in-memory store")
		a.store = store.NewMemoryStore()
	} else {
		st, err := pgstore.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.store = st
	}

	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.FetchTimeout(),
		AgentDelay: cfg.AgentDelay(),
	}, logger)
	discoverer := discovery.New(fetcher, logger)
	parser := sitemap.NewParser(fetcher, logger)

	if cfg.GSC.CredentialsFile == "" {
		return nil, fmt.Errorf("gsc.credentials_file is required")
	}
	inspector, err := gsc.NewGoogleInspector(ctx, cfg.GSC.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("building inspector: %w", err)
	}
	submitter, err := gsc.NewGoogleSubmitter(ctx, cfg.GSC.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("building submitter: %w", err)
	}
	gscClient := gsc.NewClient(inspector, submitter, gsc.Config{
		BatchSize:     cfg.GSC.StatusBatchSize,
		BatchInterval: cfg.BatchInterval(),
	}, logger)

	if a.archive, err = buildArchive(ctx, cfg.Archive); err != nil {
		return nil, err
	}
	if a.events, err = buildEvents(ctx, cfg.Events); err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Email.Host != "" {
		sender := notify.NewSender(notify.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     strconv.Itoa(cfg.Email.Port),
			User:     cfg.Email.User,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		})
		notifier = notify.NewEmailNotifier(sender, a.store, logger)
	} else {
		logger.Warn("no SMTP host configured, email notifications disabled")
	}

	a.orchestrator = pipeline.New(
		a.store,
		discoverer,
		fetcher,
		parser,
		gscClient,
		notifier,
		a.events,
		a.archive,
		pipeline.Config{
			SettleDelay:    cfg.SettleDelay(),
			ResubmitWindow: cfg.ResubmitWindow(),
		},
		logger,
	)
	a.queue = queue.New(a.orchestrator, cfg.Queue.Depth, logger)

	if cfg.Scheduler.Enabled {
		a.scheduler = scheduler.New(a.store, a.queue, cfg.Scheduler.Cron, logger)
	}
	if cfg.Reaper.Enabled {
		a.reaper = reaper.New(a.store, cfg.Reaper.Cron, cfg.ReaperMaxAge(), logger)
	}

	a.apiServer = api.NewServer(a.store, a.queue, a.orchestrator, cfg, logger)
	return a, nil
}

func buildArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, error) {
	switch cfg.Backend {
	case "local":
		return archive.NewLocal(cfg.LocalDir)
	case "gcs":
		return archive.NewGCS(ctx, cfg.GCSBucket, cfg.Prefix)
	default:
		return archive.Nop{}, nil
	}
}

func buildEvents(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Backend {
	case "memory":
		return events.NewMemory(), nil
	case "pubsub":
		return events.NewPubSub(ctx, cfg.ProjectID, cfg.Topic)
	default:
		return events.Nop{}, nil
	}
}

// Run starts the queue worker, background jobs, and the HTTP server, then
// blocks until the context is cancelled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.queue.Start(ctx)
	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}
	if a.reaper != nil {
		if err := a.reaper.Start(); err != nil {
			return fmt.Errorf("starting reaper: %w", err)
		}
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.close(shutdownCtx)
	return nil
}

// RunOnce executes a single indexing run outside the queue, for the CLI.
func (a *App) RunOnce(ctx context.Context, websiteID int64) error {
	defer a.close(ctx)
	return a.orchestrator.ProcessWebsite(ctx, websiteID, pipeline.OriginManual)
}

func (a *App) close(_ context.Context) {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.reaper != nil {
		<-a.reaper.Stop().Done()
	}
	a.queue.Wait()
	if err := a.events.Close(); err != nil {
		a.logger.Warn("event publisher close failed", zap.Error(err))
	}
	if err := a.archive.Close(); err != nil {
		a.logger.Warn("archive close failed", zap.Error(err))
	}
	a.store.Close()
	a.logger.Info("shutdown complete")
}

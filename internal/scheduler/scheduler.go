// Package scheduler enqueues periodic indexing runs for every website due
// for an automatic scan.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/pipeline"
	"github.com/indexpilot/indexpilot/internal/store"
)

// Enqueuer is the queue surface the scheduler needs.
type Enqueuer interface {
	AddJob(websiteID int64, origin pipeline.Origin) error
}

// Scheduler enqueues due websites on a cron spec.
type Scheduler struct {
	store  store.Store
	queue  Enqueuer
	cron   *cron.Cron
	spec   string
	logger *zap.Logger
}

// New builds a Scheduler. The spec uses standard five-field cron syntax.
func New(st store.Store, queue Enqueuer, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:  st,
		queue:  queue,
		cron:   cron.New(),
		spec:   spec,
		logger: logger,
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		s.Run(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))
	return nil
}

// Stop halts scheduling. The returned context is done once any in-flight
// cron callback has returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run enqueues one scheduled job per website due for an automatic scan.
// Websites that do not fit the queue are skipped and picked up next cycle.
func (s *Scheduler) Run(ctx context.Context) {
	websites, err := s.store.GetWebsitesForIndexing(ctx)
	if err != nil {
		s.logger.Error("failed to list websites for indexing", zap.Error(err))
		return
	}
	enqueued := 0
	for _, w := range websites {
		if err := s.queue.AddJob(w.ID, pipeline.OriginScheduled); err != nil {
			s.logger.Warn("could not enqueue scheduled run",
				zap.Int64("website_id", w.ID),
				zap.Error(err),
			)
			continue
		}
		enqueued++
	}
	s.logger.Info("scheduled indexing cycle",
		zap.Int("due", len(websites)),
		zap.Int("enqueued", enqueued),
	)
}

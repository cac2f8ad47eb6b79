// Package reaper fails indexing jobs stuck in in_progress, typically left
// behind by a crash mid-run.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
	"github.com/indexpilot/indexpilot/internal/store"
)

// Reaper periodically marks stale jobs failed.
type Reaper struct {
	store  store.Store
	cron   *cron.Cron
	spec   string
	maxAge time.Duration
	logger *zap.Logger
}

// New builds a Reaper. Jobs older than maxAge are considered stuck.
func New(st store.Store, spec string, maxAge time.Duration, logger *zap.Logger) *Reaper {
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Reaper{
		store:  st,
		cron:   cron.New(),
		spec:   spec,
		maxAge: maxAge,
		logger: logger,
	}
}

// Start registers the cron entry and begins reaping.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.spec, func() {
		if _, err := r.ReapStale(context.Background(), time.Now()); err != nil {
			r.logger.Error("reap cycle failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reaper started",
		zap.String("spec", r.spec),
		zap.Duration("max_age", r.maxAge),
	)
	return nil
}

// Stop halts reaping. The returned context is done once any in-flight
// callback has returned.
func (r *Reaper) Stop() context.Context {
	return r.cron.Stop()
}

// ReapStale fails every in_progress job started before now minus the max
// age, and returns how many were reaped.
func (r *Reaper) ReapStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := r.store.ListStaleJobs(ctx, now.Add(-r.maxAge))
	if err != nil {
		return 0, fmt.Errorf("listing stale jobs: %w", err)
	}
	reaped := 0
	for _, job := range stale {
		if err := r.store.UpdateIndexingJob(ctx, job.ID, indexing.JobStatusFailed, job.ProcessedPages); err != nil {
			r.logger.Warn("failed to reap job",
				zap.Int64("job_id", job.ID),
				zap.Error(err),
			)
			continue
		}
		r.logger.Info("reaped stale job",
			zap.Int64("job_id", job.ID),
			zap.Int64("website_id", job.WebsiteID),
		)
		reaped++
	}
	if reaped > 0 {
		metrics.ObserveReapedJobs(reaped)
	}
	return reaped, nil
}

// Package queue serializes indexing runs. One worker drains a bounded
// channel, so at most one website is processed at a time and the Search
// Console quota is never hit from two runs at once.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/metrics"
	"github.com/indexpilot/indexpilot/internal/pipeline"
)

// ErrQueueFull is returned when the queue cannot accept another job.
var ErrQueueFull = errors.New("job queue is full")

// Runner executes one indexing run.
type Runner interface {
	ProcessWebsite(ctx context.Context, websiteID int64, origin pipeline.Origin) error
}

// Job is one queued indexing run.
type Job struct {
	WebsiteID int64
	Origin    pipeline.Origin
}

// Queue is the bounded FIFO of pending runs.
type Queue struct {
	jobs   chan Job
	runner Runner
	logger *zap.Logger

	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}
}

// New builds a Queue with the given depth.
func New(runner Runner, depth int, logger *zap.Logger) *Queue {
	if depth <= 0 {
		depth = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Queue{
		jobs:   make(chan Job, depth),
		runner: runner,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the single worker. It returns immediately; the worker runs
// until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.startOnce.Do(func() {
		q.started.Store(true)
		go q.run(ctx)
	})
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			metrics.SetQueueDepth(len(q.jobs))
			if err := q.runner.ProcessWebsite(ctx, job.WebsiteID, job.Origin); err != nil {
				q.logger.Error("indexing run failed",
					zap.Int64("website_id", job.WebsiteID),
					zap.String("origin", string(job.Origin)),
					zap.Error(err),
				)
			}
		}
	}
}

// AddJob enqueues a run without blocking. A full queue returns ErrQueueFull.
func (q *Queue) AddJob(websiteID int64, origin pipeline.Origin) error {
	select {
	case q.jobs <- Job{WebsiteID: websiteID, Origin: origin}:
		metrics.SetQueueDepth(len(q.jobs))
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth reports how many jobs are waiting.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

// Wait blocks until the worker has stopped after its context was cancelled.
// It returns immediately when the worker was never started.
func (q *Queue) Wait() {
	if !q.started.Load() {
		return
	}
	<-q.done
}

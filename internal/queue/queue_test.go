package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/pipeline"
)

type recordingRunner struct {
	mu      sync.Mutex
	active  int
	overlap bool
	order   []int64
	block   chan struct{}
	started chan int64
}

func newRecordingRunner(blocking bool) *recordingRunner {
	r := &recordingRunner{started: make(chan int64, 16)}
	if blocking {
		r.block = make(chan struct{})
	}
	return r
}

func (r *recordingRunner) ProcessWebsite(ctx context.Context, websiteID int64, _ pipeline.Origin) error {
	r.mu.Lock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.order = append(r.order, websiteID)
	r.mu.Unlock()

	r.started <- websiteID
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return nil
}

func TestQueueRunsJobsSeriallyInOrder(t *testing.T) {
	t.Parallel()

	runner := newRecordingRunner(true)
	q := New(runner, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.AddJob(1, pipeline.OriginManual))
	require.NoError(t, q.AddJob(2, pipeline.OriginScheduled))

	// first job starts, second must wait for it
	assert.Equal(t, int64(1), <-runner.started)
	select {
	case <-runner.started:
		t.Fatal("second job started while first was still running")
	case <-time.After(50 * time.Millisecond):
	}

	runner.block <- struct{}{}
	assert.Equal(t, int64(2), <-runner.started)
	runner.block <- struct{}{}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.False(t, runner.overlap)
	assert.Equal(t, []int64{1, 2}, runner.order)
}

func TestQueueFull(t *testing.T) {
	t.Parallel()

	q := New(newRecordingRunner(false), 2, nil)
	// worker not started, so jobs pile up
	require.NoError(t, q.AddJob(1, pipeline.OriginManual))
	require.NoError(t, q.AddJob(2, pipeline.OriginManual))
	assert.ErrorIs(t, q.AddJob(3, pipeline.OriginManual), ErrQueueFull)
	assert.Equal(t, 2, q.Depth())
}

func TestQueueStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	runner := newRecordingRunner(false)
	q := New(runner, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	require.NoError(t, q.AddJob(1, pipeline.OriginManual))
	<-runner.started

	cancel()
	q.Wait()
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/pipeline"
	"github.com/indexpilot/indexpilot/internal/queue"
	"github.com/indexpilot/indexpilot/internal/store"
)

type fakeEnqueuer struct {
	jobs    []int64
	origins []pipeline.Origin
	err     error
}

func (f *fakeEnqueuer) AddJob(websiteID int64, origin pipeline.Origin) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, websiteID)
	f.origins = append(f.origins, origin)
	return nil
}

func TestRunEnqueuesDueWebsites(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	old := time.Now().Add(-48 * time.Hour)
	st.SeedWebsite(indexing.Website{ID: 1, Enabled: true, AutoIndexing: true})
	st.SeedWebsite(indexing.Website{ID: 2, Enabled: true, AutoIndexing: true, LastAutoIndex: &old})
	st.SeedWebsite(indexing.Website{ID: 3, Enabled: false, AutoIndexing: true})

	q := &fakeEnqueuer{}
	s := New(st, q, "0 0 * * *", nil)
	s.Run(context.Background())

	assert.ElementsMatch(t, []int64{1, 2}, q.jobs)
	for _, origin := range q.origins {
		assert.Equal(t, pipeline.OriginScheduled, origin)
	}
}

func TestRunToleratesFullQueue(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	st.SeedWebsite(indexing.Website{ID: 1, Enabled: true, AutoIndexing: true})

	s := New(st, &fakeEnqueuer{err: queue.ErrQueueFull}, "0 0 * * *", nil)
	s.Run(context.Background())
}

func TestStartRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := New(store.NewMemoryStore(), &fakeEnqueuer{}, "not a cron spec", nil)
	require.Error(t, s.Start())
}

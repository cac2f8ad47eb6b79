package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	m.SeedWebsite(indexing.Website{ID: 1, UserID: 10, Domain: "example.com", Enabled: true, AutoIndexing: true})
	m.SeedUserEmail(10, "owner@example.com")
	return m
}

func TestMemoryWebsiteLookup(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	w, err := m.GetWebsiteByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "example.com", w.Domain)

	_, err = m.GetWebsiteByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGetWebsitesForIndexing(t *testing.T) {
	t.Parallel()
	m := NewMemoryStore()
	ctx := context.Background()

	recent := time.Now().Add(-time.Hour)
	old := time.Now().Add(-48 * time.Hour)
	m.SeedWebsite(indexing.Website{ID: 1, Enabled: true, AutoIndexing: true})
	m.SeedWebsite(indexing.Website{ID: 2, Enabled: true, AutoIndexing: true, LastAutoIndex: &old})
	m.SeedWebsite(indexing.Website{ID: 3, Enabled: true, AutoIndexing: true, LastAutoIndex: &recent})
	m.SeedWebsite(indexing.Website{ID: 4, Enabled: false, AutoIndexing: true})
	m.SeedWebsite(indexing.Website{ID: 5, Enabled: true, AutoIndexing: false})

	due, err := m.GetWebsitesForIndexing(ctx)
	require.NoError(t, err)

	ids := make(map[int64]bool)
	for _, w := range due {
		ids[w.ID] = true
	}
	assert.True(t, ids[1], "never indexed")
	assert.True(t, ids[2], "stale")
	assert.False(t, ids[3], "indexed recently")
	assert.False(t, ids[4], "disabled")
	assert.False(t, ids[5], "auto indexing off")
}

func TestMemoryBulkUpsertAndRemove(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	err := m.BulkUpsertPages(ctx, 1, []PageUpsert{
		{URL: "https://example.com/a", Status: indexing.StatusUnknown},
		{URL: "https://example.com/b", Status: indexing.StatusUnknown},
	})
	require.NoError(t, err)

	now := time.Now()
	err = m.BulkUpsertPages(ctx, 1, []PageUpsert{
		{URL: "https://example.com/a", Status: indexing.StatusSubmittedAndIndexed, LastCrawled: &now},
		{URL: "https://example.com/c", Status: indexing.StatusSubmitted, LastSubmitted: &now},
	})
	require.NoError(t, err)

	pages, err := m.GetPagesByWebsiteID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	byURL := make(map[string]indexing.Page)
	for _, p := range pages {
		byURL[p.URL] = p
	}
	assert.Equal(t, indexing.StatusSubmittedAndIndexed, byURL["https://example.com/a"].Status)
	assert.NotNil(t, byURL["https://example.com/a"].LastCrawled)
	assert.NotNil(t, byURL["https://example.com/c"].LastSubmitted)

	require.NoError(t, m.RemovePages(ctx, 1, []string{"https://example.com/b"}))
	pages, err = m.GetPagesByWebsiteID(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestMemoryIndexingStats(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	require.NoError(t, m.BulkUpsertPages(ctx, 1, []PageUpsert{
		{URL: "https://example.com/a", Status: indexing.StatusSubmittedAndIndexed},
		{URL: "https://example.com/b", Status: indexing.StatusIndexed},
		{URL: "https://example.com/c", Status: indexing.StatusCrawledNotIndexed},
	}))

	stats, err := m.GetIndexingStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, IndexingStats{TotalPages: 3, IndexedPages: 2, NotIndexedPages: 1}, stats)
}

func TestMemoryJobLifecycle(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	job, err := m.CreateIndexingJob(ctx, 1, indexing.JobStatusInProgress, 5)
	require.NoError(t, err)
	require.NotZero(t, job.ID)
	assert.NotNil(t, job.StartedAt)

	require.NoError(t, m.UpdateIndexingJob(ctx, job.ID, indexing.JobStatusCompleted, 3))

	got, err := m.GetIndexingJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, indexing.JobStatusCompleted, got.Status)
	assert.Equal(t, 3, got.ProcessedPages)
	assert.NotNil(t, got.CompletedAt)
}

func TestMemoryListStaleJobs(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	stuck, err := m.CreateIndexingJob(ctx, 1, indexing.JobStatusInProgress, 1)
	require.NoError(t, err)
	done, err := m.CreateIndexingJob(ctx, 1, indexing.JobStatusInProgress, 1)
	require.NoError(t, err)
	require.NoError(t, m.UpdateIndexingJob(ctx, done.ID, indexing.JobStatusCompleted, 1))

	stale, err := m.ListStaleJobs(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, stuck.ID, stale[0].ID)

	stale, err = m.ListStaleJobs(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestMemoryJobDetailResolvesPageID(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	require.NoError(t, m.BulkUpsertPages(ctx, 1, []PageUpsert{
		{URL: "https://example.com/a", Status: indexing.StatusUnknown},
	}))
	job, err := m.CreateIndexingJob(ctx, 1, indexing.JobStatusInProgress, 1)
	require.NoError(t, err)

	require.NoError(t, m.CreateIndexingJobDetail(ctx, job.ID, 1, "https://example.com/a", indexing.StatusSubmitted, `{"ok":true}`))

	details := m.JobDetails(job.ID)
	require.Len(t, details, 1)
	assert.NotZero(t, details[0].PageID)
	assert.Equal(t, indexing.StatusSubmitted, details[0].Status)
}

func TestMemoryNotificationsAndEmail(t *testing.T) {
	t.Parallel()
	m := seedStore(t)
	ctx := context.Background()

	email, err := m.GetUserEmail(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)

	require.NoError(t, m.CreateEmailNotification(ctx, indexing.EmailNotification{
		UserID:    10,
		WebsiteID: 1,
		Type:      indexing.NotificationJobComplete,
		Content:   "<html></html>",
	}))
	assert.Len(t, m.Notifications(), 1)
}

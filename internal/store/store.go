// Package store defines the persistence boundary for websites, pages, jobs,
// and notifications.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PageUpsert carries the per-URL state written back after a pipeline run.
// Nil pointer fields leave the existing column value untouched.
type PageUpsert struct {
	URL           string
	Status        indexing.IndexingStatus
	LastCrawled   *time.Time
	LastSubmitted *time.Time
	LastModified  *time.Time
}

// IndexingStats aggregates a website's page statuses.
type IndexingStats struct {
	TotalPages      int `json:"total_pages"`
	IndexedPages    int `json:"indexed_pages"`
	NotIndexedPages int `json:"not_indexed_pages"`
}

// Store is the persistence interface the pipeline, API, and scheduler share.
type Store interface {
	GetWebsiteByID(ctx context.Context, id int64) (indexing.Website, error)
	// GetWebsitesForIndexing returns enabled auto-indexing websites whose
	// last automatic run is absent or older than one day.
	GetWebsitesForIndexing(ctx context.Context) ([]indexing.Website, error)
	UpdateWebsiteTimestamps(ctx context.Context, id int64, synced, autoIndexed bool) error

	GetPagesByWebsiteID(ctx context.Context, websiteID int64) ([]indexing.Page, error)
	GetPage(ctx context.Context, websiteID, pageID int64) (indexing.Page, error)
	// BulkUpsertPages inserts or updates pages keyed by (website_id, url) in
	// one transaction.
	BulkUpsertPages(ctx context.Context, websiteID int64, pages []PageUpsert) error
	RemovePages(ctx context.Context, websiteID int64, urls []string) error
	GetIndexingStats(ctx context.Context, websiteID int64) (IndexingStats, error)

	CreateIndexingJob(ctx context.Context, websiteID int64, status indexing.JobStatus, totalPages int) (indexing.IndexingJob, error)
	UpdateIndexingJob(ctx context.Context, id int64, status indexing.JobStatus, processedPages int) error
	GetIndexingJob(ctx context.Context, id int64) (indexing.IndexingJob, error)
	// ListStaleJobs returns in_progress jobs started before the cutoff.
	ListStaleJobs(ctx context.Context, startedBefore time.Time) ([]indexing.IndexingJob, error)
	CreateIndexingJobDetail(ctx context.Context, jobID, websiteID int64, pageURL string, status indexing.IndexingStatus, response string) error

	CreateEmailNotification(ctx context.Context, n indexing.EmailNotification) error
	GetUserEmail(ctx context.Context, userID int64) (string, error)

	Close()
}

// Package postgres provides the Postgres-backed Store implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/store"
)

// pgxPool is the pool surface the store needs. pgxpool.Pool satisfies it, and
// so does a pgxmock pool in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements store.Store against Postgres.
type Store struct {
	pool pgxPool
}

// New connects a pool and pings it before returning the store.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool) *Store {
	return &Store{pool: pool}
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const websiteColumns = `id, user_id, domain, enabled, auto_indexing_enabled, last_sync, last_auto_index, created_at, updated_at`

func scanWebsite(row pgx.Row) (indexing.Website, error) {
	var w indexing.Website
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Domain,
		&w.Enabled,
		&w.AutoIndexing,
		&w.LastSync,
		&w.LastAutoIndex,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

// GetWebsiteByID implements store.Store.
func (s *Store) GetWebsiteByID(ctx context.Context, id int64) (indexing.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1;`
	w, err := scanWebsite(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return indexing.Website{}, store.ErrNotFound
		}
		return indexing.Website{}, fmt.Errorf("failed to get website: %w", err)
	}
	return w, nil
}

// GetWebsitesForIndexing implements store.Store.
func (s *Store) GetWebsitesForIndexing(ctx context.Context) ([]indexing.Website, error) {
	query := `
		SELECT ` + websiteColumns + `
		FROM websites
		WHERE enabled = TRUE
		  AND auto_indexing_enabled = TRUE
		  AND (last_auto_index IS NULL OR last_auto_index < NOW() - INTERVAL '1 day')
		ORDER BY id;
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list websites for indexing: %w", err)
	}
	defer rows.Close()

	var websites []indexing.Website
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan website row: %w", err)
		}
		websites = append(websites, w)
	}
	return websites, rows.Err()
}

// UpdateWebsiteTimestamps implements store.Store.
func (s *Store) UpdateWebsiteTimestamps(ctx context.Context, id int64, synced, autoIndexed bool) error {
	query := `
		UPDATE websites
		SET last_sync = CASE WHEN $2 THEN NOW() ELSE last_sync END,
		    last_auto_index = CASE WHEN $3 THEN NOW() ELSE last_auto_index END,
		    updated_at = NOW()
		WHERE id = $1;
	`
	tag, err := s.pool.Exec(ctx, query, id, synced, autoIndexed)
	if err != nil {
		return fmt.Errorf("failed to update website timestamps: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const pageColumns = `id, website_id, url, indexing_status, last_crawled_at, last_submitted_at, last_modified, created_at, updated_at`

func scanPage(row pgx.Row) (indexing.Page, error) {
	var p indexing.Page
	err := row.Scan(
		&p.ID,
		&p.WebsiteID,
		&p.URL,
		&p.Status,
		&p.LastCrawled,
		&p.LastSubmitted,
		&p.LastModified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// GetPagesByWebsiteID implements store.Store.
func (s *Store) GetPagesByWebsiteID(ctx context.Context, websiteID int64) ([]indexing.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE website_id = $1 ORDER BY id;`
	rows, err := s.pool.Query(ctx, query, websiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var pages []indexing.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPage implements store.Store.
func (s *Store) GetPage(ctx context.Context, websiteID, pageID int64) (indexing.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE website_id = $1 AND id = $2;`
	p, err := scanPage(s.pool.QueryRow(ctx, query, websiteID, pageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return indexing.Page{}, store.ErrNotFound
		}
		return indexing.Page{}, fmt.Errorf("failed to get page: %w", err)
	}
	return p, nil
}

// BulkUpsertPages implements store.Store. All rows commit or none do.
func (s *Store) BulkUpsertPages(ctx context.Context, websiteID int64, pages []store.PageUpsert) error {
	if len(pages) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO pages (website_id, url, indexing_status, last_crawled_at, last_submitted_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (website_id, url) DO UPDATE
		SET indexing_status = EXCLUDED.indexing_status,
		    last_crawled_at = COALESCE(EXCLUDED.last_crawled_at, pages.last_crawled_at),
		    last_submitted_at = COALESCE(EXCLUDED.last_submitted_at, pages.last_submitted_at),
		    last_modified = COALESCE(EXCLUDED.last_modified, pages.last_modified),
		    updated_at = NOW();
	`
	for _, p := range pages {
		if _, err := tx.Exec(ctx, query, websiteID, p.URL, p.Status, p.LastCrawled, p.LastSubmitted, p.LastModified); err != nil {
			return fmt.Errorf("failed to upsert page %s: %w", p.URL, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit page upserts: %w", err)
	}
	return nil
}

// RemovePages implements store.Store.
func (s *Store) RemovePages(ctx context.Context, websiteID int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	query := `DELETE FROM pages WHERE website_id = $1 AND url = ANY($2);`
	if _, err := s.pool.Exec(ctx, query, websiteID, urls); err != nil {
		return fmt.Errorf("failed to remove pages: %w", err)
	}
	return nil
}

// GetIndexingStats implements store.Store.
func (s *Store) GetIndexingStats(ctx context.Context, websiteID int64) (store.IndexingStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE indexing_status IN ('Indexed', 'Submitted and indexed')),
		       COUNT(*) FILTER (WHERE indexing_status NOT IN ('Indexed', 'Submitted and indexed'))
		FROM pages
		WHERE website_id = $1;
	`
	var stats store.IndexingStats
	err := s.pool.QueryRow(ctx, query, websiteID).Scan(
		&stats.TotalPages,
		&stats.IndexedPages,
		&stats.NotIndexedPages,
	)
	if err != nil {
		return store.IndexingStats{}, fmt.Errorf("failed to get indexing stats: %w", err)
	}
	return stats, nil
}

// CreateIndexingJob implements store.Store.
func (s *Store) CreateIndexingJob(ctx context.Context, websiteID int64, status indexing.JobStatus, totalPages int) (indexing.IndexingJob, error) {
	query := `
		INSERT INTO indexing_jobs (website_id, status, started_at, total_pages, processed_pages)
		VALUES ($1, $2, NOW(), $3, 0)
		RETURNING id, started_at;
	`
	job := indexing.IndexingJob{
		WebsiteID:  websiteID,
		Status:     status,
		TotalPages: totalPages,
	}
	err := s.pool.QueryRow(ctx, query, websiteID, status, totalPages).Scan(&job.ID, &job.StartedAt)
	if err != nil {
		return indexing.IndexingJob{}, fmt.Errorf("failed to create indexing job: %w", err)
	}
	return job, nil
}

// UpdateIndexingJob implements store.Store.
func (s *Store) UpdateIndexingJob(ctx context.Context, id int64, status indexing.JobStatus, processedPages int) error {
	query := `
		UPDATE indexing_jobs
		SET status = $2,
		    processed_pages = $3,
		    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN NOW() ELSE completed_at END
		WHERE id = $1;
	`
	tag, err := s.pool.Exec(ctx, query, id, status, processedPages)
	if err != nil {
		return fmt.Errorf("failed to update indexing job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const jobColumns = `id, website_id, status, started_at, completed_at, total_pages, processed_pages`

func scanJob(row pgx.Row) (indexing.IndexingJob, error) {
	var j indexing.IndexingJob
	err := row.Scan(
		&j.ID,
		&j.WebsiteID,
		&j.Status,
		&j.StartedAt,
		&j.CompletedAt,
		&j.TotalPages,
		&j.ProcessedPages,
	)
	return j, err
}

// GetIndexingJob implements store.Store.
func (s *Store) GetIndexingJob(ctx context.Context, id int64) (indexing.IndexingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM indexing_jobs WHERE id = $1;`
	job, err := scanJob(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return indexing.IndexingJob{}, store.ErrNotFound
		}
		return indexing.IndexingJob{}, fmt.Errorf("failed to get indexing job: %w", err)
	}
	return job, nil
}

// ListStaleJobs implements store.Store.
func (s *Store) ListStaleJobs(ctx context.Context, startedBefore time.Time) ([]indexing.IndexingJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM indexing_jobs
		WHERE status = 'in_progress' AND started_at < $1
		ORDER BY started_at;
	`
	rows, err := s.pool.Query(ctx, query, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []indexing.IndexingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CreateIndexingJobDetail implements store.Store. The page ID is resolved
// from the URL inside the insert so callers never carry row IDs around.
func (s *Store) CreateIndexingJobDetail(ctx context.Context, jobID, websiteID int64, pageURL string, status indexing.IndexingStatus, response string) error {
	query := `
		INSERT INTO indexing_job_details (indexing_job_id, page_id, status, response, submitted_at)
		SELECT $1, p.id, $4, $5, NOW()
		FROM pages p
		WHERE p.website_id = $2 AND p.url = $3;
	`
	if _, err := s.pool.Exec(ctx, query, jobID, websiteID, pageURL, status, response); err != nil {
		return fmt.Errorf("failed to create job detail: %w", err)
	}
	return nil
}

// CreateEmailNotification implements store.Store.
func (s *Store) CreateEmailNotification(ctx context.Context, n indexing.EmailNotification) error {
	query := `
		INSERT INTO email_notifications (user_id, website_id, type, content)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := s.pool.Exec(ctx, query, n.UserID, n.WebsiteID, n.Type, n.Content); err != nil {
		return fmt.Errorf("failed to create email notification: %w", err)
	}
	return nil
}

// GetUserEmail implements store.Store.
func (s *Store) GetUserEmail(ctx context.Context, userID int64) (string, error) {
	query := `SELECT email FROM users WHERE id = $1;`
	var email string
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("failed to get user email: %w", err)
	}
	return email, nil
}

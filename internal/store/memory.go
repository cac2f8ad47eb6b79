package store

import (
	"context"
	"sync"
	"time"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

// MemoryStore is an in-memory Store used when no database DSN is configured,
// and as the fixture store in tests.
type MemoryStore struct {
	mu sync.RWMutex

	websites      map[int64]indexing.Website
	pages         map[int64]map[string]indexing.Page
	jobs          map[int64]indexing.IndexingJob
	details       []indexing.JobDetail
	notifications []indexing.EmailNotification
	userEmails    map[int64]string

	nextPageID int64
	nextJobID  int64
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		websites:   make(map[int64]indexing.Website),
		pages:      make(map[int64]map[string]indexing.Page),
		jobs:       make(map[int64]indexing.IndexingJob),
		userEmails: make(map[int64]string),
		nextPageID: 1,
		nextJobID:  1,
	}
}

// SeedWebsite registers a website, for wiring without a database and tests.
func (m *MemoryStore) SeedWebsite(w indexing.Website) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.websites[w.ID] = w
}

// SeedUserEmail registers a user's notification address.
func (m *MemoryStore) SeedUserEmail(userID int64, email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userEmails[userID] = email
}

// GetWebsiteByID implements Store.
func (m *MemoryStore) GetWebsiteByID(_ context.Context, id int64) (indexing.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.websites[id]
	if !ok {
		return indexing.Website{}, ErrNotFound
	}
	return w, nil
}

// GetWebsitesForIndexing implements Store.
func (m *MemoryStore) GetWebsitesForIndexing(_ context.Context) ([]indexing.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-24 * time.Hour)
	var due []indexing.Website
	for _, w := range m.websites {
		if !w.Enabled || !w.AutoIndexing {
			continue
		}
		if w.LastAutoIndex == nil || w.LastAutoIndex.Before(cutoff) {
			due = append(due, w)
		}
	}
	return due, nil
}

// UpdateWebsiteTimestamps implements Store.
func (m *MemoryStore) UpdateWebsiteTimestamps(_ context.Context, id int64, synced, autoIndexed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	if synced {
		w.LastSync = &now
	}
	if autoIndexed {
		w.LastAutoIndex = &now
	}
	w.UpdatedAt = now
	m.websites[id] = w
	return nil
}

// GetPagesByWebsiteID implements Store.
func (m *MemoryStore) GetPagesByWebsiteID(_ context.Context, websiteID int64) ([]indexing.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []indexing.Page
	for _, p := range m.pages[websiteID] {
		out = append(out, p)
	}
	return out, nil
}

// GetPage implements Store.
func (m *MemoryStore) GetPage(_ context.Context, websiteID, pageID int64) (indexing.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pages[websiteID] {
		if p.ID == pageID {
			return p, nil
		}
	}
	return indexing.Page{}, ErrNotFound
}

// BulkUpsertPages implements Store.
func (m *MemoryStore) BulkUpsertPages(_ context.Context, websiteID int64, pages []PageUpsert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byURL, ok := m.pages[websiteID]
	if !ok {
		byURL = make(map[string]indexing.Page)
		m.pages[websiteID] = byURL
	}
	now := time.Now()
	for _, up := range pages {
		page, exists := byURL[up.URL]
		if !exists {
			page = indexing.Page{
				ID:        m.nextPageID,
				WebsiteID: websiteID,
				URL:       up.URL,
				CreatedAt: now,
			}
			m.nextPageID++
		}
		page.Status = up.Status
		if up.LastCrawled != nil {
			page.LastCrawled = up.LastCrawled
		}
		if up.LastSubmitted != nil {
			page.LastSubmitted = up.LastSubmitted
		}
		if up.LastModified != nil {
			page.LastModified = up.LastModified
		}
		page.UpdatedAt = now
		byURL[up.URL] = page
	}
	return nil
}

// RemovePages implements Store.
func (m *MemoryStore) RemovePages(_ context.Context, websiteID int64, urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byURL := m.pages[websiteID]
	for _, u := range urls {
		delete(byURL, u)
	}
	return nil
}

// GetIndexingStats implements Store.
func (m *MemoryStore) GetIndexingStats(_ context.Context, websiteID int64) (IndexingStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats IndexingStats
	for _, p := range m.pages[websiteID] {
		stats.TotalPages++
		switch p.Status {
		case indexing.StatusIndexed, indexing.StatusSubmittedAndIndexed:
			stats.IndexedPages++
		default:
			stats.NotIndexedPages++
		}
	}
	return stats, nil
}

// CreateIndexingJob implements Store.
func (m *MemoryStore) CreateIndexingJob(_ context.Context, websiteID int64, status indexing.JobStatus, totalPages int) (indexing.IndexingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	job := indexing.IndexingJob{
		ID:         m.nextJobID,
		WebsiteID:  websiteID,
		Status:     status,
		StartedAt:  &now,
		TotalPages: totalPages,
	}
	m.nextJobID++
	m.jobs[job.ID] = job
	return job, nil
}

// UpdateIndexingJob implements Store.
func (m *MemoryStore) UpdateIndexingJob(_ context.Context, id int64, status indexing.JobStatus, processedPages int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ProcessedPages = processedPages
	if status.Terminal() {
		now := time.Now()
		job.CompletedAt = &now
	}
	m.jobs[id] = job
	return nil
}

// GetIndexingJob implements Store.
func (m *MemoryStore) GetIndexingJob(_ context.Context, id int64) (indexing.IndexingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return indexing.IndexingJob{}, ErrNotFound
	}
	return job, nil
}

// ListStaleJobs implements Store.
func (m *MemoryStore) ListStaleJobs(_ context.Context, startedBefore time.Time) ([]indexing.IndexingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []indexing.IndexingJob
	for _, job := range m.jobs {
		if job.Status != indexing.JobStatusInProgress {
			continue
		}
		if job.StartedAt != nil && job.StartedAt.Before(startedBefore) {
			stale = append(stale, job)
		}
	}
	return stale, nil
}

// CreateIndexingJobDetail implements Store.
func (m *MemoryStore) CreateIndexingJobDetail(_ context.Context, jobID, websiteID int64, pageURL string, status indexing.IndexingStatus, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pageID int64
	if page, ok := m.pages[websiteID][pageURL]; ok {
		pageID = page.ID
	}
	m.details = append(m.details, indexing.JobDetail{
		ID:          int64(len(m.details) + 1),
		JobID:       jobID,
		PageID:      pageID,
		Status:      status,
		Response:    response,
		SubmittedAt: time.Now(),
	})
	return nil
}

// JobDetails returns the recorded detail rows, for tests.
func (m *MemoryStore) JobDetails(jobID int64) []indexing.JobDetail {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []indexing.JobDetail
	for _, d := range m.details {
		if d.JobID == jobID {
			out = append(out, d)
		}
	}
	return out
}

// CreateEmailNotification implements Store.
func (m *MemoryStore) CreateEmailNotification(_ context.Context, n indexing.EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notifications) + 1)
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, n)
	return nil
}

// Notifications returns the recorded notifications, for tests.
func (m *MemoryStore) Notifications() []indexing.EmailNotification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]indexing.EmailNotification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

// GetUserEmail implements Store.
func (m *MemoryStore) GetUserEmail(_ context.Context, userID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email, ok := m.userEmails[userID]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

// Close implements Store.
func (m *MemoryStore) Close() {}

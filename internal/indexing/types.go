// Package indexing defines core domain types shared across the pipeline.
package indexing

import (
	"net/url"
	"strings"
	"time"
)

// IndexingStatus is the closed set of per-URL states reported by the
// inspection API, plus the "unknown" sentinel used when a lookup fails.
type IndexingStatus string

// Indexing status values persisted per page.
const (
	StatusIndexed                   IndexingStatus = "Indexed"
	StatusSubmitted                 IndexingStatus = "Submitted"
	StatusSubmittedAndIndexed       IndexingStatus = "Submitted and indexed"
	StatusSubmittedNotIndexed       IndexingStatus = "Submitted not indexed"
	StatusDiscoveredNotIndexed      IndexingStatus = "Discovered not indexed"
	StatusCrawledNotIndexed         IndexingStatus = "Crawled not indexed"
	StatusExcludedNoindex           IndexingStatus = "Excluded noindex"
	StatusBlockedRobots             IndexingStatus = "Blocked robots"
	StatusDuplicateWithoutCanonical IndexingStatus = "Duplicate without canonical"
	StatusUnknown                   IndexingStatus = "unknown"
)

// Terminal reports whether a page in this status is exempt from re-submission.
func (s IndexingStatus) Terminal() bool {
	return s == StatusSubmittedAndIndexed
}

// Valid reports whether s is a member of the closed status set.
func (s IndexingStatus) Valid() bool {
	switch s {
	case StatusIndexed, StatusSubmitted, StatusSubmittedAndIndexed,
		StatusSubmittedNotIndexed, StatusDiscoveredNotIndexed,
		StatusCrawledNotIndexed, StatusExcludedNoindex, StatusBlockedRobots,
		StatusDuplicateWithoutCanonical, StatusUnknown:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of an indexing job.
type JobStatus string

// Job status values persisted in the job table.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the job has finished, successfully or not.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// NotificationType distinguishes the emails the pipeline can send.
type NotificationType string

// Notification types recorded alongside sent emails.
const (
	NotificationJobComplete NotificationType = "job_complete"
	NotificationJobFailed   NotificationType = "job_failed"
)

// Website is a connected Search Console property.
type Website struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Domain        string     `json:"domain"`
	Enabled       bool       `json:"enabled"`
	AutoIndexing  bool       `json:"auto_indexing_enabled"`
	LastSync      *time.Time `json:"last_sync,omitempty"`
	LastAutoIndex *time.Time `json:"last_auto_index,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Page is one URL discovered from a website's sitemaps.
type Page struct {
	ID            int64          `json:"id"`
	WebsiteID     int64          `json:"website_id"`
	URL           string         `json:"url"`
	Status        IndexingStatus `json:"indexing_status"`
	LastCrawled   *time.Time     `json:"last_crawled,omitempty"`
	LastSubmitted *time.Time     `json:"last_submitted,omitempty"`
	LastModified  *time.Time     `json:"last_modified,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IndexingJob is the audit record of one full pipeline run for a website.
type IndexingJob struct {
	ID             int64      `json:"id"`
	WebsiteID      int64      `json:"website_id"`
	Status         JobStatus  `json:"status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalPages     int        `json:"total_pages"`
	ProcessedPages int        `json:"processed_pages"`
}

// JobDetail is one append-only row per URL submitted within a job.
type JobDetail struct {
	ID          int64          `json:"id"`
	JobID       int64          `json:"indexing_job_id"`
	PageID      int64          `json:"page_id"`
	Status      IndexingStatus `json:"status"`
	Response    string         `json:"response"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// EmailNotification mirrors a sent email, write-once.
type EmailNotification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	WebsiteID int64            `json:"website_id"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// CleanDomain normalizes a Search Console property identifier to a bare
// hostname: the sc-domain: prefix, URL scheme, path, and leading www. are
// all stripped.
func CleanDomain(input string) string {
	domain := strings.TrimSpace(strings.TrimPrefix(input, "sc-domain:"))
	if u, err := url.Parse(domain); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	return strings.TrimPrefix(domain, "www.")
}

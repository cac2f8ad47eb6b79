// Package events publishes job lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the job lifecycle transitions published.
type EventType string

// Lifecycle event types.
const (
	JobStarted   EventType = "job_started"
	JobCompleted EventType = "job_completed"
	JobFailed    EventType = "job_failed"
)

// Event is one job lifecycle transition.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	WebsiteID      int64     `json:"website_id"`
	JobID          int64     `json:"job_id"`
	Domain         string    `json:"domain"`
	At             time.Time `json:"at"`
	ProcessedPages int       `json:"processed_pages,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// New stamps an event with an ID and timestamp.
func New(eventType EventType, websiteID, jobID int64, domain string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		WebsiteID: websiteID,
		JobID:     jobID,
		Domain:    domain,
		At:        time.Now().UTC(),
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

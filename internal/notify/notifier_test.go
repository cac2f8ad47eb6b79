package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/store"
)

type fakeSender struct {
	to       string
	subject  string
	htmlBody string
	err      error
	calls    int
}

func (f *fakeSender) SendMail(_ context.Context, to, subject, htmlBody string) error {
	f.calls++
	f.to = to
	f.subject = subject
	f.htmlBody = htmlBody
	return f.err
}

func testFixtures(t *testing.T) (*store.MemoryStore, indexing.Website) {
	t.Helper()
	st := store.NewMemoryStore()
	website := indexing.Website{ID: 1, UserID: 10, Domain: "example.com"}
	st.SeedWebsite(website)
	st.SeedUserEmail(10, "owner@example.com")
	return st, website
}

func TestNotifyJobComplete(t *testing.T) {
	t.Parallel()

	st, website := testFixtures(t)
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, st, nil)

	now := time.Now()
	job := indexing.IndexingJob{ID: 7, WebsiteID: 1, TotalPages: 12, CompletedAt: &now}
	err := n.NotifyJobComplete(context.Background(), website, job, []string{
		"https://example.com/new-post",
		"https://example.com/other-post",
	})
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", sender.to)
	assert.Contains(t, sender.subject, "example.com")
	assert.Contains(t, sender.htmlBody, "12 pages tracked")
	assert.Contains(t, sender.htmlBody, "2 submitted")
	assert.Contains(t, sender.htmlBody, "https://example.com/new-post")

	recorded := st.Notifications()
	require.Len(t, recorded, 1)
	assert.Equal(t, indexing.NotificationJobComplete, recorded[0].Type)
}

func TestNotifyJobCompleteNothingSubmitted(t *testing.T) {
	t.Parallel()

	st, website := testFixtures(t)
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, st, nil)

	err := n.NotifyJobComplete(context.Background(), website, indexing.IndexingJob{TotalPages: 3}, nil)
	require.NoError(t, err)
	assert.Contains(t, sender.htmlBody, "No pages needed submission")
}

func TestNotifyJobFailed(t *testing.T) {
	t.Parallel()

	st, website := testFixtures(t)
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, st, nil)

	err := n.NotifyJobFailed(context.Background(), website, indexing.IndexingJob{ID: 7}, "no accessible sitemap found")
	require.NoError(t, err)
	assert.Contains(t, sender.subject, "failed")
	assert.Contains(t, sender.htmlBody, "no accessible sitemap found")

	recorded := st.Notifications()
	require.Len(t, recorded, 1)
	assert.Equal(t, indexing.NotificationJobFailed, recorded[0].Type)
}

func TestNotifyUnknownRecipient(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	website := indexing.Website{ID: 1, UserID: 99, Domain: "example.com"}
	st.SeedWebsite(website)
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, st, nil)

	err := n.NotifyJobComplete(context.Background(), website, indexing.IndexingJob{}, nil)
	require.Error(t, err)
	assert.Zero(t, sender.calls)
}

func TestNotifySendFailure(t *testing.T) {
	t.Parallel()

	st, website := testFixtures(t)
	sender := &fakeSender{err: errors.New("smtp refused")}
	n := NewEmailNotifier(sender, st, nil)

	err := n.NotifyJobComplete(context.Background(), website, indexing.IndexingJob{}, nil)
	require.Error(t, err)
	assert.Empty(t, st.Notifications(), "failed sends are not recorded")
}

func TestSanitizeHeader(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", sanitizeHeader("plain"))
	assert.Equal(t, "no breaks", sanitizeHeader("no\r\n breaks"))
}

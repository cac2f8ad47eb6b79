package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
	"github.com/indexpilot/indexpilot/internal/store"
)

// Notifier reports job outcomes to the website owner.
type Notifier interface {
	NotifyJobComplete(ctx context.Context, website indexing.Website, job indexing.IndexingJob, submittedURLs []string) error
	NotifyJobFailed(ctx context.Context, website indexing.Website, job indexing.IndexingJob, reason string) error
}

// MailSender is the delivery surface EmailNotifier needs.
type MailSender interface {
	SendMail(ctx context.Context, to, subject, htmlBody string) error
}

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<body>
<h2>Indexing report for {{.Domain}}</h2>
<p>The sitemap scan finished at {{.FinishedAt}}.</p>
<p>{{.TotalPages}} pages tracked, {{len .SubmittedURLs}} submitted for indexing.</p>
{{if .SubmittedURLs}}
<h3>Submitted URLs</h3>
<ul>
{{range .SubmittedURLs}}<li>{{.}}</li>
{{end}}</ul>
{{else}}
<p>No pages needed submission.</p>
{{end}}
</body>
</html>`))

var failureTemplate = template.Must(template.New("failure").Parse(`<html>
<body>
<h2>Indexing failed for {{.Domain}}</h2>
<p>The sitemap scan started at {{.StartedAt}} did not complete.</p>
<p>Reason: {{.Reason}}</p>
</body>
</html>`))

// EmailNotifier emails the website owner and records each sent message.
type EmailNotifier struct {
	sender MailSender
	store  store.Store
	logger *zap.Logger
}

// NewEmailNotifier builds an EmailNotifier.
func NewEmailNotifier(sender MailSender, st store.Store, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &EmailNotifier{sender: sender, store: st, logger: logger}
}

// NotifyJobComplete sends the indexing report for a finished job.
func (n *EmailNotifier) NotifyJobComplete(ctx context.Context, website indexing.Website, job indexing.IndexingJob, submittedURLs []string) error {
	finished := time.Now()
	if job.CompletedAt != nil {
		finished = *job.CompletedAt
	}

	var body bytes.Buffer
	err := reportTemplate.Execute(&body, struct {
		Domain        string
		FinishedAt    string
		TotalPages    int
		SubmittedURLs []string
	}{
		Domain:        website.Domain,
		FinishedAt:    finished.Format(time.RFC1123),
		TotalPages:    job.TotalPages,
		SubmittedURLs: submittedURLs,
	})
	if err != nil {
		return fmt.Errorf("rendering report email: %w", err)
	}

	subject := fmt.Sprintf("Indexing report for %s", website.Domain)
	return n.deliver(ctx, website, indexing.NotificationJobComplete, subject, body.String())
}

// NotifyJobFailed sends the failure notice for a job that did not complete.
func (n *EmailNotifier) NotifyJobFailed(ctx context.Context, website indexing.Website, job indexing.IndexingJob, reason string) error {
	started := time.Now()
	if job.StartedAt != nil {
		started = *job.StartedAt
	}

	var body bytes.Buffer
	err := failureTemplate.Execute(&body, struct {
		Domain    string
		StartedAt string
		Reason    string
	}{
		Domain:    website.Domain,
		StartedAt: started.Format(time.RFC1123),
		Reason:    reason,
	})
	if err != nil {
		return fmt.Errorf("rendering failure email: %w", err)
	}

	subject := fmt.Sprintf("Indexing failed for %s", website.Domain)
	return n.deliver(ctx, website, indexing.NotificationJobFailed, subject, body.String())
}

func (n *EmailNotifier) deliver(ctx context.Context, website indexing.Website, kind indexing.NotificationType, subject, body string) error {
	to, err := n.store.GetUserEmail(ctx, website.UserID)
	if err != nil {
		return fmt.Errorf("looking up recipient for user %d: %w", website.UserID, err)
	}
	if err := n.sender.SendMail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("sending %s email: %w", kind, err)
	}
	metrics.ObserveNotification(string(kind))

	if err := n.store.CreateEmailNotification(ctx, indexing.EmailNotification{
		UserID:    website.UserID,
		WebsiteID: website.ID,
		Type:      kind,
		Content:   body,
	}); err != nil {
		// the mail is already out, so only log the bookkeeping failure
		n.logger.Warn("failed to record email notification",
			zap.Int64("website_id", website.ID),
			zap.Error(err),
		)
	}
	return nil
}

// Nop discards notifications. Used when SMTP is not configured.
type Nop struct{}

// NotifyJobComplete implements Notifier.
func (Nop) NotifyJobComplete(context.Context, indexing.Website, indexing.IndexingJob, []string) error {
	return nil
}

// NotifyJobFailed implements Notifier.
func (Nop) NotifyJobFailed(context.Context, indexing.Website, indexing.IndexingJob, string) error {
	return nil
}

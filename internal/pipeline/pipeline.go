// Package pipeline runs the full sitemap scan and indexing cycle for one
// website at a time.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/archive"
	"github.com/indexpilot/indexpilot/internal/gsc"
	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
	"github.com/indexpilot/indexpilot/internal/notify"
	"github.com/indexpilot/indexpilot/internal/notify/events"
	"github.com/indexpilot/indexpilot/internal/reconcile"
	"github.com/indexpilot/indexpilot/internal/sitemap"
	"github.com/indexpilot/indexpilot/internal/store"
)

// Origin says what triggered a run.
type Origin string

// Run origins.
const (
	OriginManual    Origin = "manual"
	OriginScheduled Origin = "scheduled"
)

// Discoverer finds sitemap URLs for a domain.
type Discoverer interface {
	DiscoverSitemaps(ctx context.Context, domain string) ([]string, error)
}

// ContentFetcher retrieves sitemap XML.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser turns sitemap XML into page entries.
type Parser interface {
	Parse(ctx context.Context, content string) ([]sitemap.Entry, error)
}

// StatusClient is the Search Console surface the pipeline uses.
type StatusClient interface {
	FetchBulkIndexingStatus(ctx context.Context, siteURL string, urls []string) (map[string]gsc.InspectionResult, error)
	SubmitURLForIndexing(ctx context.Context, pageURL string) (gsc.PublishResponse, error)
}

// Config tunes the orchestrator.
type Config struct {
	// SettleDelay is how long to wait after submissions before re-checking
	// indexing status.
	SettleDelay time.Duration
	// ResubmitWindow guards already-indexed pages from being re-submitted
	// too soon after their last submission.
	ResubmitWindow time.Duration
}

// Orchestrator executes indexing runs.
type Orchestrator struct {
	store      store.Store
	discoverer Discoverer
	fetcher    ContentFetcher
	parser     Parser
	gsc        StatusClient
	notifier   notify.Notifier
	events     events.Publisher
	archive    archive.Store
	clock      Clock
	cfg        Config
	logger     *zap.Logger
}

// New wires an Orchestrator. Nil notifier, events, archive, and clock fall
// back to no-op implementations.
func New(
	st store.Store,
	discoverer Discoverer,
	fetcher ContentFetcher,
	parser Parser,
	statusClient StatusClient,
	notifier notify.Notifier,
	publisher events.Publisher,
	archiveStore archive.Store,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if archiveStore == nil {
		archiveStore = archive.Nop{}
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 20 * time.Second
	}
	if cfg.ResubmitWindow <= 0 {
		cfg.ResubmitWindow = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		store:      st,
		discoverer: discoverer,
		fetcher:    fetcher,
		parser:     parser,
		gsc:        statusClient,
		notifier:   notifier,
		events:     publisher,
		archive:    archiveStore,
		clock:      systemClock{},
		cfg:        cfg,
		logger:     logger,
	}
}

// WithClock swaps the clock, for tests.
func (o *Orchestrator) WithClock(clock Clock) *Orchestrator {
	o.clock = clock
	return o
}

// ProcessWebsite runs one full indexing cycle for the website: discover and
// parse sitemaps, diff against stored pages, check indexing status, submit
// what is not indexed, re-check after the settle delay, and persist the
// outcome. The run is recorded as an indexing job.
func (o *Orchestrator) ProcessWebsite(ctx context.Context, websiteID int64, origin Origin) error {
	website, err := o.store.GetWebsiteByID(ctx, websiteID)
	if err != nil {
		return fmt.Errorf("loading website %d: %w", websiteID, err)
	}
	domain := indexing.CleanDomain(website.Domain)
	log := o.logger.With(
		zap.Int64("website_id", websiteID),
		zap.String("domain", domain),
		zap.String("origin", string(origin)),
	)
	log.Info("starting indexing run")

	entries, err := o.collectEntries(ctx, website, domain, log)
	if err != nil {
		o.failBeforeJob(ctx, website, err)
		return err
	}

	job, err := o.store.CreateIndexingJob(ctx, websiteID, indexing.JobStatusInProgress, len(entries))
	if err != nil {
		return fmt.Errorf("creating indexing job: %w", err)
	}
	o.publish(ctx, events.New(events.JobStarted, websiteID, job.ID, domain))

	submitted, err := o.runJob(ctx, website, domain, job, entries, origin, log)
	if err != nil {
		o.failJob(ctx, website, job, len(submitted), err)
		return err
	}

	metrics.ObserveJob(string(indexing.JobStatusCompleted))
	completed := events.New(events.JobCompleted, websiteID, job.ID, domain)
	completed.ProcessedPages = len(submitted)
	o.publish(ctx, completed)

	if len(submitted) > 0 {
		job.ProcessedPages = len(submitted)
		if err := o.notifier.NotifyJobComplete(ctx, website, job, submitted); err != nil {
			log.Warn("completion notification failed", zap.Error(err))
		}
	}
	log.Info("indexing run completed",
		zap.Int("total_pages", job.TotalPages),
		zap.Int("submitted", len(submitted)),
	)
	return nil
}

// collectEntries discovers, fetches, and parses every usable sitemap. It
// fails only when no sitemap yields entries.
func (o *Orchestrator) collectEntries(ctx context.Context, website indexing.Website, domain string, log *zap.Logger) ([]sitemap.Entry, error) {
	discovered, err := o.discoverer.DiscoverSitemaps(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("discovering sitemaps for %s: %w", domain, err)
	}

	usable := sitemap.FilterSitemaps(discovered)
	if len(usable) == 0 {
		// an unconventional naming scheme should not kill the run
		log.Warn("no sitemap passed the name filter, using all discovered sitemaps")
		usable = discovered
	}

	var entries []sitemap.Entry
	parsedAny := false
	day := o.clock.Now().UTC().Format("2006-01-02")
	for _, sitemapURL := range usable {
		content, err := o.fetcher.Fetch(ctx, sitemapURL)
		if err != nil {
			log.Warn("sitemap fetch failed", zap.String("sitemap", sitemapURL), zap.Error(err))
			continue
		}
		objectName := fmt.Sprintf("%s/%s/%s", domain, day, path.Base(sitemapURL))
		if _, err := o.archive.Put(ctx, objectName, []byte(content)); err != nil {
			log.Warn("sitemap archive failed", zap.String("sitemap", sitemapURL), zap.Error(err))
		}
		parsed, err := o.parser.Parse(ctx, content)
		if err != nil {
			metrics.ObserveSitemapParseFailure(sitemapURL)
			log.Warn("sitemap parse failed", zap.String("sitemap", sitemapURL), zap.Error(err))
			continue
		}
		parsedAny = true
		entries = append(entries, parsed...)
	}
	if !parsedAny {
		return nil, fmt.Errorf("no sitemap could be fetched and parsed for %s", domain)
	}
	return dedupe(entries), nil
}

// runJob executes everything after job creation and returns the URLs that
// were successfully submitted.
func (o *Orchestrator) runJob(ctx context.Context, website indexing.Website, domain string, job indexing.IndexingJob, entries []sitemap.Entry, origin Origin, log *zap.Logger) ([]string, error) {
	stored, err := o.store.GetPagesByWebsiteID(ctx, website.ID)
	if err != nil {
		return nil, fmt.Errorf("loading stored pages: %w", err)
	}
	diff := reconcile.Partition(entries, stored)
	log.Info("reconciled sitemap against stored pages",
		zap.Int("new", len(diff.New)),
		zap.Int("removed", len(diff.Removed)),
		zap.Int("unchanged", len(diff.Unchanged)),
	)

	lastModified := make(map[string]*time.Time, len(entries))
	for _, e := range entries {
		lastModified[e.URL] = e.LastModified
	}
	lastSubmitted := make(map[string]*time.Time, len(stored))
	for _, p := range stored {
		lastSubmitted[p.URL] = p.LastSubmitted
	}

	// new pages get rows up front so job details can reference them
	if len(diff.New) > 0 {
		inserts := make([]store.PageUpsert, 0, len(diff.New))
		for _, url := range diff.New {
			inserts = append(inserts, store.PageUpsert{
				URL:          url,
				Status:       indexing.StatusUnknown,
				LastModified: lastModified[url],
			})
		}
		if err := o.store.BulkUpsertPages(ctx, website.ID, inserts); err != nil {
			return nil, fmt.Errorf("inserting new pages: %w", err)
		}
	}

	active := append(append([]string{}, diff.New...), diff.Unchanged...)
	statuses, err := o.gsc.FetchBulkIndexingStatus(ctx, website.Domain, active)
	if err != nil {
		return nil, fmt.Errorf("checking indexing status: %w", err)
	}

	var submitted []string
	now := o.clock.Now()
	for _, url := range active {
		if err := ctx.Err(); err != nil {
			return submitted, err
		}
		if !o.shouldSubmit(statuses[url].Status, lastSubmitted[url], now) {
			continue
		}
		resp, err := o.gsc.SubmitURLForIndexing(ctx, url)
		if err != nil {
			log.Warn("url submission failed", zap.String("url", url), zap.Error(err))
			continue
		}
		submitted = append(submitted, url)
		if err := o.store.CreateIndexingJobDetail(ctx, job.ID, website.ID, url, indexing.StatusSubmitted, resp.Raw); err != nil {
			log.Warn("failed to record job detail", zap.String("url", url), zap.Error(err))
		}
	}

	// give Google a moment before re-checking what we just submitted
	if len(submitted) > 0 {
		if err := o.clock.Sleep(ctx, o.cfg.SettleDelay); err != nil {
			return submitted, err
		}
		rechecked, err := o.gsc.FetchBulkIndexingStatus(ctx, website.Domain, submitted)
		if err != nil {
			return submitted, fmt.Errorf("re-checking indexing status: %w", err)
		}
		for url, res := range rechecked {
			statuses[url] = res
		}
	}

	submittedSet := make(map[string]bool, len(submitted))
	for _, url := range submitted {
		submittedSet[url] = true
	}
	upserts := make([]store.PageUpsert, 0, len(active))
	for _, url := range active {
		res := statuses[url]
		up := store.PageUpsert{
			URL:          url,
			Status:       res.Status,
			LastCrawled:  res.LastCrawled,
			LastModified: lastModified[url],
		}
		if submittedSet[url] {
			up.LastSubmitted = &now
		}
		upserts = append(upserts, up)
	}
	if err := o.store.BulkUpsertPages(ctx, website.ID, upserts); err != nil {
		return submitted, fmt.Errorf("persisting page statuses: %w", err)
	}

	if len(diff.Removed) > 0 {
		gone := make([]string, 0, len(diff.Removed))
		for _, p := range diff.Removed {
			gone = append(gone, p.URL)
		}
		if err := o.store.RemovePages(ctx, website.ID, gone); err != nil {
			return submitted, fmt.Errorf("removing dropped pages: %w", err)
		}
	}

	if err := o.store.UpdateWebsiteTimestamps(ctx, website.ID, true, origin == OriginScheduled); err != nil {
		return submitted, fmt.Errorf("updating website timestamps: %w", err)
	}
	if err := o.store.UpdateIndexingJob(ctx, job.ID, indexing.JobStatusCompleted, len(submitted)); err != nil {
		return submitted, fmt.Errorf("completing indexing job: %w", err)
	}
	return submitted, nil
}

// shouldSubmit skips pages that reached "Submitted and indexed" unless their
// last submission is old enough that a refresh is due.
func (o *Orchestrator) shouldSubmit(status indexing.IndexingStatus, lastSubmitted *time.Time, now time.Time) bool {
	if !status.Terminal() {
		return true
	}
	if lastSubmitted == nil {
		return false
	}
	return now.Sub(*lastSubmitted) >= o.cfg.ResubmitWindow
}

// SubmitPage submits one page on demand, outside a full run.
func (o *Orchestrator) SubmitPage(ctx context.Context, websiteID, pageID int64) (gsc.PublishResponse, error) {
	page, err := o.store.GetPage(ctx, websiteID, pageID)
	if err != nil {
		return gsc.PublishResponse{}, fmt.Errorf("loading page %d: %w", pageID, err)
	}
	resp, err := o.gsc.SubmitURLForIndexing(ctx, page.URL)
	if err != nil {
		return gsc.PublishResponse{}, fmt.Errorf("submitting %s: %w", page.URL, err)
	}
	now := o.clock.Now()
	err = o.store.BulkUpsertPages(ctx, websiteID, []store.PageUpsert{{
		URL:           page.URL,
		Status:        indexing.StatusSubmitted,
		LastSubmitted: &now,
	}})
	if err != nil {
		return resp, fmt.Errorf("recording submission for %s: %w", page.URL, err)
	}
	return resp, nil
}

func (o *Orchestrator) failBeforeJob(ctx context.Context, website indexing.Website, cause error) {
	metrics.ObserveJob(string(indexing.JobStatusFailed))
	event := events.New(events.JobFailed, website.ID, 0, indexing.CleanDomain(website.Domain))
	event.Reason = cause.Error()
	o.publish(ctx, event)
	if err := o.notifier.NotifyJobFailed(ctx, website, indexing.IndexingJob{WebsiteID: website.ID}, cause.Error()); err != nil {
		o.logger.Warn("failure notification failed", zap.Int64("website_id", website.ID), zap.Error(err))
	}
}

func (o *Orchestrator) failJob(ctx context.Context, website indexing.Website, job indexing.IndexingJob, processed int, cause error) {
	if err := o.store.UpdateIndexingJob(ctx, job.ID, indexing.JobStatusFailed, processed); err != nil {
		o.logger.Warn("failed to mark job failed", zap.Int64("job_id", job.ID), zap.Error(err))
	}
	metrics.ObserveJob(string(indexing.JobStatusFailed))
	event := events.New(events.JobFailed, website.ID, job.ID, indexing.CleanDomain(website.Domain))
	event.Reason = cause.Error()
	event.ProcessedPages = processed
	o.publish(ctx, event)
	if err := o.notifier.NotifyJobFailed(ctx, website, job, cause.Error()); err != nil {
		o.logger.Warn("failure notification failed", zap.Int64("job_id", job.ID), zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.events.Publish(ctx, event); err != nil {
		o.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func dedupe(entries []sitemap.Entry) []sitemap.Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.URL]; ok {
			continue
		}
		seen[e.URL] = struct{}{}
		out = append(out, e)
	}
	return out
}

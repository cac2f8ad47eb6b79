// Package gsc talks to the Google Search Console URL Inspection API and the
// Indexing API. The batch client bounds both concurrency and request rate so
// a large site cannot burn through the per-property quota in one run.
package gsc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
)

// InspectionResult is the distilled outcome of one URL inspection.
type InspectionResult struct {
	URL         string
	Status      indexing.IndexingStatus
	LastCrawled *time.Time
}

// PublishResponse captures the Indexing API acknowledgement for one URL.
type PublishResponse struct {
	URL        string
	Type       string
	NotifyTime *time.Time
	Raw        string
}

// Inspector checks the indexing status of a single URL.
type Inspector interface {
	Inspect(ctx context.Context, siteURL, pageURL string) (InspectionResult, error)
}

// Submitter notifies Google that a URL was updated.
type Submitter interface {
	Publish(ctx context.Context, pageURL string) (PublishResponse, error)
}

// Config tunes the batch client.
type Config struct {
	// BatchSize is the number of URLs inspected concurrently per batch.
	BatchSize int
	// BatchInterval is the minimum spacing between batch starts.
	BatchInterval time.Duration
}

// Client batches inspections and submits URLs against the two Google APIs.
type Client struct {
	inspector Inspector
	submitter Submitter
	batchSize int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClient builds a batch client around an Inspector and a Submitter.
func NewClient(inspector Inspector, submitter Submitter, cfg Config, logger *zap.Logger) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Client{
		inspector: inspector,
		submitter: submitter,
		batchSize: cfg.BatchSize,
		limiter:   rate.NewLimiter(rate.Every(cfg.BatchInterval), 1),
		logger:    logger,
	}
}

// FetchBulkIndexingStatus inspects every URL and returns a result per URL.
// Inspection failures never abort the run: a URL whose lookup errors comes
// back with StatusUnknown and no crawl time.
func (c *Client) FetchBulkIndexingStatus(ctx context.Context, siteURL string, urls []string) (map[string]InspectionResult, error) {
	results := make(map[string]InspectionResult, len(urls))

	for start := 0; start < len(urls); start += c.batchSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return results, err
		}

		end := start + c.batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]
		batchResults := make([]InspectionResult, len(batch))

		began := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for i, pageURL := range batch {
			i, pageURL := i, pageURL
			g.Go(func() error {
				res, err := c.inspector.Inspect(gctx, siteURL, pageURL)
				if err != nil {
					c.logger.Warn("url inspection failed",
						zap.String("url", pageURL),
						zap.Error(err),
					)
					res = InspectionResult{URL: pageURL, Status: indexing.StatusUnknown}
				}
				batchResults[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
		metrics.ObserveStatusBatch(time.Since(began))

		for _, res := range batchResults {
			results[res.URL] = res
		}
	}
	return results, nil
}

// SubmitURLForIndexing publishes a URL_UPDATED notification for the URL.
func (c *Client) SubmitURLForIndexing(ctx context.Context, pageURL string) (PublishResponse, error) {
	resp, err := c.submitter.Publish(ctx, pageURL)
	if err != nil {
		metrics.ObserveSubmission(pageURL, "error")
		return PublishResponse{}, err
	}
	metrics.ObserveSubmission(pageURL, "ok")
	return resp, nil
}

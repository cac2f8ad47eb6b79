package gsc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	indexingapi "google.golang.org/api/indexing/v3"
	"google.golang.org/api/option"
	searchconsole "google.golang.org/api/searchconsole/v1"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

// tokenSourceFromFile builds a service-account token source scoped to the
// given API. The inspection and indexing APIs need different scopes, so each
// service authenticates separately.
func tokenSourceFromFile(ctx context.Context, credentialsFile, scope string) (option.ClientOption, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, scope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	return option.WithTokenSource(cfg.TokenSource(ctx)), nil
}

// GoogleInspector performs URL inspections through the Search Console API.
type GoogleInspector struct {
	svc *searchconsole.Service
}

// NewGoogleInspector authenticates with the service account credentials file.
func NewGoogleInspector(ctx context.Context, credentialsFile string) (*GoogleInspector, error) {
	ts, err := tokenSourceFromFile(ctx, credentialsFile, searchconsole.WebmastersReadonlyScope)
	if err != nil {
		return nil, err
	}
	svc, err := searchconsole.NewService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("creating search console service: %w", err)
	}
	return &GoogleInspector{svc: svc}, nil
}

// Inspect runs one URL inspection against the site's property.
func (g *GoogleInspector) Inspect(ctx context.Context, siteURL, pageURL string) (InspectionResult, error) {
	req := &searchconsole.InspectUrlIndexRequest{
		SiteUrl:       siteURL,
		InspectionUrl: pageURL,
	}
	resp, err := g.svc.UrlInspection.Index.Inspect(req).Context(ctx).Do()
	if err != nil {
		return InspectionResult{}, fmt.Errorf("inspecting %s: %w", pageURL, err)
	}

	result := InspectionResult{URL: pageURL, Status: indexing.StatusUnknown}
	if resp.InspectionResult == nil || resp.InspectionResult.IndexStatusResult == nil {
		return result, nil
	}

	status := resp.InspectionResult.IndexStatusResult
	result.Status = statusFromCoverage(status.CoverageState, status.Verdict)
	if status.LastCrawlTime != "" {
		if t, err := time.Parse(time.RFC3339, status.LastCrawlTime); err == nil {
			result.LastCrawled = &t
		}
	}
	return result, nil
}

// GoogleSubmitter publishes URL notifications through the Indexing API.
type GoogleSubmitter struct {
	svc *indexingapi.Service
}

// NewGoogleSubmitter authenticates with the service account credentials file.
func NewGoogleSubmitter(ctx context.Context, credentialsFile string) (*GoogleSubmitter, error) {
	ts, err := tokenSourceFromFile(ctx, credentialsFile, indexingapi.IndexingScope)
	if err != nil {
		return nil, err
	}
	svc, err := indexingapi.NewService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("creating indexing service: %w", err)
	}
	return &GoogleSubmitter{svc: svc}, nil
}

// Publish sends a URL_UPDATED notification for the page.
func (g *GoogleSubmitter) Publish(ctx context.Context, pageURL string) (PublishResponse, error) {
	notification := &indexingapi.UrlNotification{
		Url:  pageURL,
		Type: "URL_UPDATED",
	}
	resp, err := g.svc.UrlNotifications.Publish(notification).Context(ctx).Do()
	if err != nil {
		return PublishResponse{}, fmt.Errorf("publishing %s: %w", pageURL, err)
	}

	out := PublishResponse{URL: pageURL, Type: "URL_UPDATED"}
	if raw, err := json.Marshal(resp); err == nil {
		out.Raw = string(raw)
	}
	if resp.UrlNotificationMetadata != nil && resp.UrlNotificationMetadata.LatestUpdate != nil {
		if t, err := time.Parse(time.RFC3339, resp.UrlNotificationMetadata.LatestUpdate.NotifyTime); err == nil {
			out.NotifyTime = &t
		}
	}
	return out, nil
}

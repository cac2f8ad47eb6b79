// Package discovery locates a website's sitemaps, first through robots.txt
// directives and then by probing conventional sitemap paths.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/fetch"
	"github.com/indexpilot/indexpilot/internal/indexing"
)

// Fetcher is the subset of the HTTP fetcher discovery needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Head(ctx context.Context, url string) (int, error)
}

// Discoverer finds sitemap URLs for a domain.
type Discoverer struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// New builds a Discoverer.
func New(fetcher Fetcher, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, logger: logger}
}

// DiscoverSitemaps returns the sitemap URLs for domain. The primary path
// reads Sitemap: directives out of robots.txt, preserving their order of
// appearance; a robots.txt without directives yields the conventional
// /sitemap.xml default. When robots.txt itself cannot be fetched, the fixed
// list of conventional sitemap paths is probed instead.
func (d *Discoverer) DiscoverSitemaps(ctx context.Context, domain string) ([]string, error) {
	robotsURL := fmt.Sprintf("https://%s/robots.txt", domain)
	content, err := d.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		d.logger.Warn("robots.txt unreachable, probing conventional paths",
			zap.String("domain", domain),
			zap.Error(err),
		)
		sitemap, probeErr := d.FindAccessibleSitemap(ctx, domain)
		if probeErr != nil {
			return nil, probeErr
		}
		return []string{sitemap}, nil
	}

	sitemaps := ExtractSitemapURLs(content)
	if len(sitemaps) == 0 {
		sitemaps = []string{fmt.Sprintf("https://%s/sitemap.xml", domain)}
	}
	return sitemaps, nil
}

// FindAccessibleSitemap issues HEAD requests against the conventional sitemap
// paths and returns the first that answers 200.
func (d *Discoverer) FindAccessibleSitemap(ctx context.Context, domain string) (string, error) {
	for _, path := range fetch.SitemapPathVariants {
		candidate := fmt.Sprintf("https://%s%s", domain, path)
		status, err := d.fetcher.Head(ctx, candidate)
		if err != nil {
			d.logger.Debug("sitemap probe failed",
				zap.String("url", candidate),
				zap.Error(err),
			)
			continue
		}
		if status == http.StatusOK {
			return candidate, nil
		}
	}
	return "", indexing.NewValidationError("no accessible sitemap found for %s", domain)
}

// ExtractSitemapURLs collects the values of every Sitemap: directive in
// robots.txt content, case-insensitively, in order of appearance.
func ExtractSitemapURLs(robotsTxt string) []string {
	var urls []string
	for _, line := range strings.Split(robotsTxt, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < len("sitemap:") {
			continue
		}
		if !strings.EqualFold(trimmed[:len("sitemap:")], "sitemap:") {
			continue
		}
		value := strings.TrimSpace(trimmed[len("sitemap:"):])
		if value != "" {
			urls = append(urls, value)
		}
	}
	return urls
}

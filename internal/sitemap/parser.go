// Package sitemap parses XML sitemaps into flat page URL lists, expanding
// sitemap indexes recursively and filtering out non-content sitemaps.
package sitemap

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
)

// maxIndexDepth bounds sitemap-index recursion so a self-referencing index
// cannot loop forever.
const maxIndexDepth = 5

// Entry is one page discovered from a sitemap.
type Entry struct {
	URL          string
	LastModified *time.Time
}

// ContentFetcher retrieves child sitemaps listed by a sitemap index.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser turns sitemap XML into page entries.
type Parser struct {
	fetcher ContentFetcher
	logger  *zap.Logger
}

// NewParser builds a Parser.
func NewParser(fetcher ContentFetcher, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{fetcher: fetcher, logger: logger}
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Parse maps sitemap XML to page entries. A urlset maps directly; a
// sitemapindex is expanded by fetching and parsing each listed child that
// passes the name filter, accumulating best-effort: a child that fails to
// fetch or parse is logged and skipped. Content that is neither a urlset nor
// a sitemapindex yields a ValidationError.
func (p *Parser) Parse(ctx context.Context, content string) ([]Entry, error) {
	return p.parse(ctx, content, 0)
}

func (p *Parser) parse(ctx context.Context, content string, depth int) ([]Entry, error) {
	data := []byte(content)

	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err == nil {
		return p.expandIndex(ctx, index, depth)
	}

	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, indexing.NewValidationError("Invalid sitemap format")
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		entries = append(entries, Entry{
			URL:          loc,
			LastModified: parseLastMod(u.LastMod),
		})
	}
	return entries, nil
}

func (p *Parser) expandIndex(ctx context.Context, index sitemapIndex, depth int) ([]Entry, error) {
	if depth >= maxIndexDepth {
		return nil, indexing.NewValidationError("sitemap index nested deeper than %d levels", maxIndexDepth)
	}

	var children []string
	for _, ref := range index.Sitemaps {
		if loc := strings.TrimSpace(ref.Loc); loc != "" {
			children = append(children, loc)
		}
	}

	var entries []Entry
	for _, child := range FilterSitemaps(children) {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		content, err := p.fetcher.Fetch(ctx, child)
		if err != nil {
			p.logger.Warn("child sitemap fetch failed",
				zap.String("sitemap", child),
				zap.Error(err),
			)
			continue
		}
		childEntries, err := p.parse(ctx, content, depth+1)
		if err != nil {
			metrics.ObserveSitemapParseFailure(child)
			p.logger.Warn("child sitemap parse failed",
				zap.String("sitemap", child),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, childEntries...)
	}
	return entries, nil
}

// parseLastMod accepts the lastmod formats seen in the wild: full W3C
// datetime or a bare date.
func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

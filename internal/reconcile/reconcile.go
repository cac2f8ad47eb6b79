// Package reconcile diffs the pages discovered in sitemaps against the pages
// already on record for a website.
package reconcile

import (
	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/sitemap"
)

// Result partitions a website's page set after a sitemap scan. New holds URLs
// seen in the sitemaps but not in the store, Removed holds stored pages no
// longer present in any sitemap, Unchanged holds URLs present in both.
type Result struct {
	New       []string
	Removed   []indexing.Page
	Unchanged []string
}

// Partition computes the three-way diff between discovered sitemap entries
// and stored pages. Duplicate discovered URLs are collapsed to one.
func Partition(discovered []sitemap.Entry, stored []indexing.Page) Result {
	discoveredSet := make(map[string]struct{}, len(discovered))
	for _, entry := range discovered {
		discoveredSet[entry.URL] = struct{}{}
	}

	storedSet := make(map[string]struct{}, len(stored))
	for _, page := range stored {
		storedSet[page.URL] = struct{}{}
	}

	var result Result
	seen := make(map[string]struct{}, len(discovered))
	for _, entry := range discovered {
		if _, dup := seen[entry.URL]; dup {
			continue
		}
		seen[entry.URL] = struct{}{}
		if _, ok := storedSet[entry.URL]; ok {
			result.Unchanged = append(result.Unchanged, entry.URL)
		} else {
			result.New = append(result.New, entry.URL)
		}
	}

	for _, page := range stored {
		if _, ok := discoveredSet[page.URL]; !ok {
			result.Removed = append(result.Removed, page)
		}
	}
	return result
}

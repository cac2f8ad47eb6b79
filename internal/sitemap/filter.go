package sitemap

import (
	"net/url"
	"regexp"
	"strings"
)

// Content sitemaps worth indexing. A candidate passes when its final path
// segment matches one of these, or is exactly sitemap.xml.
var allowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`post-sitemap`),
	regexp.MustCompile(`page-sitemap`),
	regexp.MustCompile(`product-sitemap`),
	regexp.MustCompile(`^sitemap[-_]?index`),
	regexp.MustCompile(`^sitemap[-_]?pages`),
	regexp.MustCompile(`^sitemap[-_]?posts`),
	regexp.MustCompile(`^sitemap[-_]?products`),
}

// Taxonomy and archive sitemaps that would flood the pipeline with
// indexing-irrelevant pages. Deny takes precedence over allow.
var denyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`category-sitemap`),
	regexp.MustCompile(`tag-sitemap`),
	regexp.MustCompile(`author-sitemap`),
	regexp.MustCompile(`^sitemap[-_]?category`),
	regexp.MustCompile(`^sitemap[-_]?tag`),
	regexp.MustCompile(`^sitemap[-_]?author`),
	regexp.MustCompile(`archive`),
}

// FilterSitemaps keeps only the sitemap URLs whose name passes the
// allow/deny filter, preserving order.
func FilterSitemaps(sitemapURLs []string) []string {
	var kept []string
	for _, sitemapURL := range sitemapURLs {
		if KeepSitemap(sitemapURL) {
			kept = append(kept, sitemapURL)
		}
	}
	return kept
}

// KeepSitemap applies the name filter to a single sitemap URL.
func KeepSitemap(sitemapURL string) bool {
	name := sitemapName(sitemapURL)
	for _, deny := range denyPatterns {
		if deny.MatchString(name) {
			return false
		}
	}
	if name == "sitemap.xml" {
		return true
	}
	for _, allow := range allowPatterns {
		if allow.MatchString(name) {
			return true
		}
	}
	return false
}

func sitemapName(sitemapURL string) string {
	path := sitemapURL
	if u, err := url.Parse(sitemapURL); err == nil && u.Path != "" {
		path = u.Path
	}
	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	return segments[len(segments)-1]
}

package fetch

// userAgents is the ordered rotation tried for every fetch: a known crawler
// identity first, then mainstream desktop browsers, then a self-identifying
// bot string as the final fallback.
var userAgents = []string{
	"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"IndexPilotBot/1.0 (+https://github.com/indexpilot/indexpilot)",
}

// SitemapPathVariants is the fixed ordered list of conventional sitemap
// locations probed when discovery or a direct sitemap fetch fails.
var SitemapPathVariants = []string{
	"/sitemap_index.xml",
	"/sitemap.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap-index.xml",
	"/sitemap/sitemap.xml",
	"/sitemap.xml.gz",
}

// browserHeaders are sent with every attempt to look like an ordinary
// browser navigation.
var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Cache-Control":   "no-cache",
	"Pragma":          "no-cache",
}

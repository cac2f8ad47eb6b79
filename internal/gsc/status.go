package gsc

import (
	"strings"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

// statusFromCoverage maps the inspection coverageState free text onto the
// closed status set. Substring matching mirrors how the API phrases its
// coverage states; the verdict only decides when no coverage phrase matched.
func statusFromCoverage(coverageState, verdict string) indexing.IndexingStatus {
	switch {
	case coverageState == "Submitted and indexed":
		return indexing.StatusSubmittedAndIndexed
	case strings.Contains(coverageState, "Duplicate"):
		return indexing.StatusDuplicateWithoutCanonical
	case strings.Contains(coverageState, "noindex"):
		return indexing.StatusExcludedNoindex
	case strings.Contains(coverageState, "robots"):
		return indexing.StatusBlockedRobots
	case strings.Contains(coverageState, "Crawled"):
		return indexing.StatusCrawledNotIndexed
	case strings.Contains(coverageState, "Discovered"):
		return indexing.StatusDiscoveredNotIndexed
	case verdict == "PASS":
		return indexing.StatusIndexed
	default:
		return indexing.StatusUnknown
	}
}

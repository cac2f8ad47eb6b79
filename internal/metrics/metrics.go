// Package metrics exposes Prometheus collectors for the indexing service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	indexingJobsTotal        *prometheus.CounterVec
	pagesSubmittedTotal      *prometheus.CounterVec
	fetchAttemptsTotal       *prometheus.CounterVec
	statusBatchDuration      prometheus.Histogram
	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	queueDepthGauge          prometheus.Gauge
	notificationsSentTotal   *prometheus.CounterVec
	staleJobsReapedTotal     prometheus.Counter
	sitemapParseFailureTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		indexingJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexpilot_jobs_total",
				Help: "Total number of indexing jobs run, labeled by terminal status.",
			},
			[]string{"status"},
		)

		pagesSubmittedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexpilot_pages_submitted_total",
				Help: "Total URL submissions, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexpilot_fetch_attempts_total",
				Help: "Outbound fetch attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		statusBatchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexpilot_status_batch_duration_seconds",
				Help:    "Histogram of bulk status-inspection batch durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		queueDepthGauge = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexpilot_queue_depth",
				Help: "Number of websites currently waiting in the serial job queue.",
			},
		)

		notificationsSentTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexpilot_notifications_sent_total",
				Help: "Email notifications sent, labeled by type.",
			},
			[]string{"type"},
		)

		staleJobsReapedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexpilot_stale_jobs_reaped_total",
				Help: "Jobs stuck in in_progress that were marked failed by the reaper.",
			},
		)

		sitemapParseFailureTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexpilot_sitemap_parse_failures_total",
				Help: "Sitemaps that failed to parse, labeled by site.",
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given terminal status.
func ObserveJob(status string) {
	indexingJobsTotal.WithLabelValues(status).Inc()
}

// ObserveSubmission increments the submission counter.
func ObserveSubmission(site, outcome string) {
	pagesSubmittedTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetchAttempt records one outbound fetch attempt.
func ObserveFetchAttempt(site, outcome string) {
	fetchAttemptsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveStatusBatch records the duration of one status-inspection batch.
func ObserveStatusBatch(duration time.Duration) {
	statusBatchDuration.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetQueueDepth updates the queue depth gauge.
func SetQueueDepth(depth int) {
	queueDepthGauge.Set(float64(depth))
}

// ObserveNotification increments the notification counter for the given type.
func ObserveNotification(notificationType string) {
	notificationsSentTotal.WithLabelValues(notificationType).Inc()
}

// ObserveReapedJobs adds to the reaped jobs counter.
func ObserveReapedJobs(count int) {
	staleJobsReapedTotal.Add(float64(count))
}

// ObserveSitemapParseFailure increments the parse failure counter.
func ObserveSitemapParseFailure(site string) {
	sitemapParseFailureTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "full url", in: "https://Example.com/sitemap.xml", want: "example.com"},
		{name: "bare host", in: "example.com", want: "example.com"},
		{name: "invalid", in: "://", want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeSite(tt.in))
		})
	}
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()

	ObserveJob("completed")
	ObserveSubmission("https://example.com/a", "ok")
	ObserveFetchAttempt("example.com", "error")
	ObserveStatusBatch(250 * time.Millisecond)
	ObserveHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
	SetQueueDepth(3)
	ObserveNotification("job_complete")
	ObserveReapedJobs(2)
	ObserveSitemapParseFailure("example.com")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "indexpilot_jobs_total")
}

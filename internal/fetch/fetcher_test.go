package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

func newTestFetcher(agents ...string) *Fetcher {
	if len(agents) == 0 {
		agents = []string{"agent-one", "agent-two"}
	}
	return New(Config{
		Timeout:    2 * time.Second,
		AgentDelay: time.Millisecond,
		UserAgents: agents,
	}, nil)
}

func TestFetchFirstAgentSucceeds(t *testing.T) {
	t.Parallel()

	var agentsSeen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentsSeen = append(agentsSeen, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("User-agent: *\nSitemap: https://example.com/sitemap.xml\n"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.NoError(t, err)
	assert.Contains(t, body, "Sitemap:")
	require.Len(t, agentsSeen, 1)
	assert.Equal(t, "agent-one", agentsSeen[0])
}

func TestFetchRotatesAgentsPastForbidden(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "agent-one" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("content"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", body)
}

func TestFetchRetriesWithChallengeCookie(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") == "waf_challenge=ok" {
			_, _ = w.Write([]byte("content behind waf"))
			return
		}
		w.Header().Set("Set-Cookie", "waf_challenge=ok")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher("agent-one")
	body, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "content behind waf", body)
}

func TestFetchAllBlockedReturnsValidationErrorWithHint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("CF-Ray", "8f3a1b2c3d4e5f60-IAD")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.Error(t, err)
	require.True(t, indexing.IsValidationError(err))
	assert.Contains(t, err.Error(), "Cloudflare")
}

func TestFetchSitemapFallsBackToVariantPaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-sitemap.xml" {
			_, _ = w.Write([]byte("<urlset></urlset>"))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher("agent-one")
	body, err := f.Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "<urlset></urlset>", body)
}

func TestFetchNonSitemapDoesNotProbeVariants(t *testing.T) {
	t.Parallel()

	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher("agent-one")
	_, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.Error(t, err)
	// one GET, plus nothing: no Set-Cookie so no cookie retry, no variant probing
	assert.Equal(t, int64(1), atomic.LoadInt64(&requests))
}

func TestFetchServerErrorFailsAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "agent-one" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
}

func TestFetchNotFoundIsAcceptedAsContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not here"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL+"/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "not here", body)
}

func TestHead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path == "/sitemap.xml" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	status, err := f.Head(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	status, err = f.Head(context.Background(), srv.URL+"/nope.xml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFetchCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(Config{AgentDelay: time.Minute, UserAgents: []string{"a", "b"}}, nil)
	_, err := f.Fetch(ctx, srv.URL+"/robots.txt")
	require.Error(t, err)
}

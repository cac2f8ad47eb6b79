// Package fetch retrieves raw text content (robots.txt, sitemap XML) over
// HTTP, rotating through a fixed list of user agents to get past common
// bot-protection layers.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
)

const maxBodyBytes = 10 << 20

// Config controls fetcher behavior.
type Config struct {
	Timeout    time.Duration
	AgentDelay time.Duration
	UserAgents []string
}

// Fetcher retrieves text content with user-agent rotation and cookie retry.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.AgentDelay == 0 {
		cfg.AgentDelay = 750 * time.Millisecond
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = userAgents
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Fetcher{
		client: &http.Client{
			Transport: newHTTPTransport(),
			Timeout:   cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch retrieves the content at rawURL. Every configured user agent is tried
// in order; 5xx and transport errors fail the attempt, a 403/503 carrying a
// Set-Cookie header is retried once with that cookie, and any other non-5xx
// response is accepted as content. When the URL looks like a sitemap and all
// agents fail, the conventional sitemap path variants on the same origin are
// tried before giving up. Exhausting every combination returns a
// ValidationError whose hint names the protection mechanism inferred from the
// last blocked response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	body, err := f.fetchWithAgents(ctx, rawURL)
	if err == nil {
		return body, nil
	}

	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || !strings.Contains(u.Path, "sitemap") {
		return "", err
	}

	origin := u.Scheme + "://" + u.Host
	for _, variant := range SitemapPathVariants {
		alt := origin + variant
		if alt == rawURL {
			continue
		}
		if altBody, altErr := f.fetchWithAgents(ctx, alt); altErr == nil {
			f.logger.Info("sitemap fetched via fallback path",
				zap.String("requested", rawURL),
				zap.String("fallback", alt),
			)
			return altBody, nil
		}
	}
	return "", err
}

// Head issues a single HEAD request and returns the response status code.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build head request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgents[0])

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("head %s: %w", rawURL, err)
	}
	if err := resp.Body.Close(); err != nil {
		f.logger.Warn("close head response body", zap.Error(err))
	}
	return resp.StatusCode, nil
}

type attemptResult struct {
	status int
	header http.Header
	body   string
}

// blocked reports whether the response looks like bot protection rather than
// real content.
func (r *attemptResult) blocked() bool {
	switch r.status {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

func (f *Fetcher) fetchWithAgents(ctx context.Context, rawURL string) (string, error) {
	var last *attemptResult
	for i, agent := range f.cfg.UserAgents {
		if i > 0 {
			if err := sleepWithContext(ctx, f.cfg.AgentDelay); err != nil {
				return "", err
			}
		}

		res, err := f.attempt(ctx, rawURL, agent, "")
		if err != nil {
			metrics.ObserveFetchAttempt(rawURL, "error")
			f.logger.Debug("fetch attempt failed",
				zap.String("url", rawURL),
				zap.String("agent", agent),
				zap.Error(err),
			)
			continue
		}
		if !res.blocked() {
			metrics.ObserveFetchAttempt(rawURL, "ok")
			return res.body, nil
		}
		last = res

		// Some WAFs issue a challenge cookie on the first request and let
		// the second one through.
		if cookie := res.header.Get("Set-Cookie"); cookie != "" {
			retry, retryErr := f.attempt(ctx, rawURL, agent, cookie)
			if retryErr == nil {
				if !retry.blocked() {
					metrics.ObserveFetchAttempt(rawURL, "ok")
					return retry.body, nil
				}
				last = retry
			}
		}
		metrics.ObserveFetchAttempt(rawURL, "blocked")
	}

	return "", &indexing.ValidationError{
		Message: fmt.Sprintf("unable to fetch %s: all user agents failed", rawURL),
		Hint:    protectionHint(last),
	}
}

func (f *Fetcher) attempt(ctx context.Context, rawURL, agent, cookie string) (*attemptResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", agent)
	for key, value := range browserHeaders {
		req.Header.Set(key, value)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return &attemptResult{
		status: resp.StatusCode,
		header: resp.Header.Clone(),
		body:   string(body),
	}, nil
}

// protectionHint inspects the last blocked response for traces of a known
// bot-protection vendor so the caller gets an actionable diagnostic.
func protectionHint(last *attemptResult) string {
	if last == nil {
		return "no response received; network-level blocking or DNS failure suspected"
	}
	server := strings.ToLower(last.header.Get("Server"))
	body := strings.ToLower(last.body)
	switch {
	case last.header.Get("CF-Ray") != "" || strings.Contains(server, "cloudflare") || strings.Contains(body, "cloudflare"):
		return "Cloudflare bot protection suspected"
	case strings.Contains(body, "wordfence"):
		return "Wordfence firewall suspected"
	default:
		return fmt.Sprintf("generic WAF suspected (last status %d)", last.status)
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch delay interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

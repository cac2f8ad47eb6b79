package discovery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
)

type fakeFetcher struct {
	content   map[string]string
	headCodes map[string]int
	fetched   []string
	probed    []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if body, ok := f.content[url]; ok {
		return body, nil
	}
	return "", errors.New("unreachable")
}

func (f *fakeFetcher) Head(_ context.Context, url string) (int, error) {
	f.probed = append(f.probed, url)
	if code, ok := f.headCodes[url]; ok {
		return code, nil
	}
	return 0, errors.New("unreachable")
}

func TestExtractSitemapURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		robots string
		want   []string
	}{
		{
			name:   "mixed casing preserved in order",
			robots: "User-agent: *\nSitemap: https://a.com/one.xml\nsitemap: https://a.com/two.xml\nSITEMAP: https://a.com/three.xml\n",
			want:   []string{"https://a.com/one.xml", "https://a.com/two.xml", "https://a.com/three.xml"},
		},
		{
			name:   "no directives",
			robots: "User-agent: *\nDisallow: /wp-admin/\n",
			want:   nil,
		},
		{
			name:   "whitespace trimmed",
			robots: "  Sitemap:   https://a.com/sm.xml  \n",
			want:   []string{"https://a.com/sm.xml"},
		},
		{
			name:   "empty value skipped",
			robots: "Sitemap:\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractSitemapURLs(tt.robots))
		})
	}
}

func TestDiscoverSitemapsFromRobots(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{content: map[string]string{
		"https://example.com/robots.txt": "Sitemap: https://example.com/post-sitemap.xml\nSitemap: https://example.com/page-sitemap.xml\n",
	}}
	d := New(f, nil)

	got, err := d.DiscoverSitemaps(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/post-sitemap.xml",
		"https://example.com/page-sitemap.xml",
	}, got)
}

func TestDiscoverSitemapsDefaultsWhenRobotsHasNoDirectives(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{content: map[string]string{
		"https://example.com/robots.txt": "User-agent: *\nDisallow:\n",
	}}
	d := New(f, nil)

	got, err := d.DiscoverSitemaps(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, got)
}

func TestDiscoverSitemapsFallsBackToProbing(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{headCodes: map[string]int{
		"https://example.com/sitemap_index.xml": http.StatusNotFound,
		"https://example.com/sitemap.xml":       http.StatusOK,
	}}
	d := New(f, nil)

	got, err := d.DiscoverSitemaps(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, got)
	// the index variant is probed first and rejected
	require.NotEmpty(t, f.probed)
	assert.Equal(t, "https://example.com/sitemap_index.xml", f.probed[0])
}

func TestFindAccessibleSitemapNoneRespond(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{}
	d := New(f, nil)

	_, err := d.FindAccessibleSitemap(context.Background(), "example.com")
	require.Error(t, err)
	assert.True(t, indexing.IsValidationError(err))
}

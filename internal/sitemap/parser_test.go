package sitemap

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexpilot/indexpilot/internal/indexing"
	"github.com/indexpilot/indexpilot/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeContentFetcher struct {
	content map[string]string
	fetched []string
}

func (f *fakeContentFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if body, ok := f.content[url]; ok {
		return body, nil
	}
	return "", errors.New("unreachable")
}

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/post-one</loc><lastmod>2024-03-01T10:30:00+00:00</lastmod></url>
  <url><loc>https://example.com/post-two</loc><lastmod>2024-03-02</lastmod></url>
  <url><loc>https://example.com/post-three</loc></url>
</urlset>`

func TestParseURLSet(t *testing.T) {
	t.Parallel()

	p := NewParser(&fakeContentFetcher{}, nil)
	entries, err := p.Parse(context.Background(), urlsetXML)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "https://example.com/post-one", entries[0].URL)
	require.NotNil(t, entries[0].LastModified)
	assert.Equal(t, 2024, entries[0].LastModified.Year())

	require.NotNil(t, entries[1].LastModified)
	assert.Equal(t, time.March, entries[1].LastModified.Month())

	assert.Nil(t, entries[2].LastModified)
}

func TestParseSitemapIndexRecursesFilteredChildren(t *testing.T) {
	t.Parallel()

	indexXML := `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>https://example.com/category-sitemap.xml</loc></sitemap>
  <sitemap><loc>https://example.com/page-sitemap.xml</loc></sitemap>
</sitemapindex>`

	f := &fakeContentFetcher{content: map[string]string{
		"https://example.com/post-sitemap.xml": `<urlset><url><loc>https://example.com/a</loc></url></urlset>`,
		"https://example.com/page-sitemap.xml": `<urlset><url><loc>https://example.com/b</loc></url></urlset>`,
	}}
	p := NewParser(f, nil)

	entries, err := p.Parse(context.Background(), indexXML)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/a", entries[0].URL)
	assert.Equal(t, "https://example.com/b", entries[1].URL)
	assert.NotContains(t, f.fetched, "https://example.com/category-sitemap.xml")
}

func TestParseSitemapIndexSkipsFailingChildren(t *testing.T) {
	t.Parallel()

	indexXML := `<sitemapindex>
  <sitemap><loc>https://example.com/post-sitemap.xml</loc></sitemap>
  <sitemap><loc>https://example.com/page-sitemap.xml</loc></sitemap>
</sitemapindex>`

	f := &fakeContentFetcher{content: map[string]string{
		// post-sitemap.xml is unreachable, page-sitemap.xml is garbage
		"https://example.com/page-sitemap.xml": `this is not xml`,
	}}
	p := NewParser(f, nil)

	entries, err := p.Parse(context.Background(), indexXML)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseNestedIndex(t *testing.T) {
	t.Parallel()

	f := &fakeContentFetcher{content: map[string]string{
		"https://example.com/sitemap-index.xml": `<sitemapindex><sitemap><loc>https://example.com/post-sitemap.xml</loc></sitemap></sitemapindex>`,
		"https://example.com/post-sitemap.xml":  `<urlset><url><loc>https://example.com/deep</loc></url></urlset>`,
	}}
	p := NewParser(f, nil)

	top := `<sitemapindex><sitemap><loc>https://example.com/sitemap-index.xml</loc></sitemap></sitemapindex>`
	entries, err := p.Parse(context.Background(), top)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/deep", entries[0].URL)
}

func TestParseInvalidContent(t *testing.T) {
	t.Parallel()

	p := NewParser(&fakeContentFetcher{}, nil)

	for _, content := range []string{
		"<html><body>403 Forbidden</body></html>",
		"not xml at all",
		"",
	} {
		_, err := p.Parse(context.Background(), content)
		require.Error(t, err, content)
		assert.True(t, indexing.IsValidationError(err), content)
	}
}

func TestParseLastModFormats(t *testing.T) {
	t.Parallel()

	assert.Nil(t, parseLastMod(""))
	assert.Nil(t, parseLastMod("yesterday"))

	full := parseLastMod("2024-06-15T08:00:00Z")
	require.NotNil(t, full)
	assert.Equal(t, 15, full.Day())

	dateOnly := parseLastMod("2024-06-15")
	require.NotNil(t, dateOnly)
	assert.Equal(t, time.June, dateOnly.Month())
}

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPut(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := l.Put(context.Background(), "example.com/2026-08-28/post-sitemap.xml", []byte("<urlset/>"))
	require.NoError(t, err)
	assert.Contains(t, uri, "file://")

	data, err := os.ReadFile(filepath.Join(dir, "example.com", "2026-08-28", "post-sitemap.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<urlset/>", string(data))
}

func TestNewLocalRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewLocal("")
	require.Error(t, err)
}

func TestNopPut(t *testing.T) {
	t.Parallel()

	uri, err := Nop{}.Put(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, uri)
}

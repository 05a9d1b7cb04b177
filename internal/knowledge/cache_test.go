package knowledge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCache_PutGetRoundTrip(t *testing.T) {
	cache, err := OpenChunkCache(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer cache.Close()

	doc := Doc{Path: "sqlite-basics.md", Text: "create table basics", Tags: []string{"sqlite"}}
	require.NoError(t, cache.Put(doc))

	got, ok, err := cache.Get("sqlite-basics.md")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, doc, got)
}

func TestChunkCache_GetMissingReturnsFalse(t *testing.T) {
	cache, err := OpenChunkCache(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	defer cache.Close()

	_, ok, err := cache.Get("nope.md")
	require.NoError(t, err)
	assert.False(t, ok)
}

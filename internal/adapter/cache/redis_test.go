package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *SearchCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := Connect(context.Background(), addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSearchCache(rdb, time.Minute)
}

func TestSearchCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	_, ok, err := c.GetSnippets(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetSnippets(ctx, "k1", []string{"Widget: blue"}))
	got, ok, err := c.GetSnippets(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Widget: blue"}, got)

	require.NoError(t, c.SetSnippets(ctx, "k2", nil))
	got, ok, err = c.GetSnippets(ctx, "k2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.GetSnippets(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSearchCacheDefaultTTL(t *testing.T) {
	c := NewSearchCache(nil, 0)
	assert.Equal(t, defaultTTL, c.ttl)
}

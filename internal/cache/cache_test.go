package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artlicor/backend/internal/domain"
)

var sample = []domain.Product{{ID: "p1", Code: "ART0001", Description: "Cerveja Heineken 330ml", StockQuantity: 12}}

func exerciseCache(t *testing.T, c CatalogCache) {
	t.Helper()
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, gen, "heineken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, gen, "heineken", sample, time.Minute))
	got, ok, err := c.Get(ctx, gen, "heineken")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample[0].Code, got[0].Code)
	assert.Equal(t, 12, got[0].StockQuantity)

	require.NoError(t, c.Invalidate(ctx))
	next, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, gen, next)

	_, ok, err = c.Get(ctx, next, "heineken")
	require.NoError(t, err)
	assert.False(t, ok)
}

// A search that read the generation before an invalidation must not leave its
// result visible to readers of the new generation.
func exerciseStaleWrite(t *testing.T, c CatalogCache) {
	t.Helper()
	ctx := context.Background()

	before, err := c.Generation(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, before, "heineken", sample, time.Minute))

	after, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err := c.Get(ctx, after, "heineken")
	require.NoError(t, err)
	assert.False(t, ok)

	fresh := []domain.Product{{ID: "p1", Code: "ART0001", StockQuantity: 11}}
	require.NoError(t, c.Set(ctx, after, "heineken", fresh, time.Minute))
	got, ok, err := c.Get(ctx, after, "heineken")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 11, got[0].StockQuantity)
}

func TestMemoryCatalogCache(t *testing.T) {
	exerciseCache(t, NewMemoryCatalogCache())
}

func TestMemoryCatalogCacheDropsStaleWrite(t *testing.T) {
	exerciseStaleWrite(t, NewMemoryCatalogCache())
}

func TestMemoryCatalogCacheExpires(t *testing.T) {
	c := NewMemoryCatalogCache()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), 0, "k", sample, time.Second))
	now = now.Add(2 * time.Second)

	_, ok, err := c.Get(context.Background(), 0, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func newRedisCache(t *testing.T) (*RedisCatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCatalogCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))
	return c, mr
}

func TestRedisCatalogCache(t *testing.T) {
	c, _ := newRedisCache(t)
	exerciseCache(t, c)
}

func TestRedisCatalogCacheIgnoresStaleWrite(t *testing.T) {
	c, _ := newRedisCache(t)
	exerciseStaleWrite(t, c)
}

func TestRedisCatalogCacheTTL(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, "k", sample, 5*time.Second))
	mr.FastForward(6 * time.Second)

	_, ok, err := c.Get(ctx, 0, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopCatalogCache(t *testing.T) {
	var c CatalogCache = NoopCatalogCache{}
	require.NoError(t, c.Set(context.Background(), 0, "k", sample, time.Minute))
	_, ok, err := c.Get(context.Background(), 0, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

package cache

import (
	"context"
	"sync"
	"time"

	"artlicor/backend/internal/domain"
)

// CatalogCache stores product search results. Entries belong to a generation;
// Invalidate advances it, and Get and Set only address the generation the
// caller read before querying the source, so a result computed before an
// invalidation is never served after it.
type CatalogCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) ([]domain.Product, bool, error)
	Set(ctx context.Context, gen int64, key string, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Generation(_ context.Context) (int64, error) {
	return 0, nil
}

func (NoopCatalogCache) Get(_ context.Context, _ int64, _ string) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ int64, _ string, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}

type memoryEntry struct {
	products  []domain.Product
	expiresAt time.Time
}

// MemoryCatalogCache is a process-local cache used when redis is not configured.
type MemoryCatalogCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCatalogCache() *MemoryCatalogCache {
	return &MemoryCatalogCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCatalogCache) Generation(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *MemoryCatalogCache) Get(_ context.Context, gen int64, key string) ([]domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return nil, false, nil
	}
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return cloneProducts(entry.products), true, nil
}

// Set drops writes from a generation that has since been invalidated.
func (c *MemoryCatalogCache) Set(_ context.Context, gen int64, key string, products []domain.Product, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.entries[key] = memoryEntry{products: cloneProducts(products), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCatalogCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]memoryEntry)
	return nil
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}

// Package catalog answers product searches for the sales screen.
package catalog

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"artlicor/backend/internal/cache"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/logging"
)

const (
	MinTermLength = 2
	SearchLimit   = 10
)

type Source interface {
	SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Lookup struct {
	source Source
	cache  cache.CatalogCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewLookup(source Source, c cache.CatalogCache, ttl time.Duration, logger *zap.Logger) *Lookup {
	if c == nil {
		c = cache.NoopCatalogCache{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lookup{source: source, cache: c, ttl: ttl, logger: logging.OrNop(logger).Named("catalog")}
}

// Search matches term against product code and description. Terms shorter
// than MinTermLength return no products.
func (l *Lookup) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinTermLength {
		return []domain.Product{}, nil
	}
	key := "search:" + strings.ToLower(term)

	// The generation is read once, before the source query, so a result that
	// races an invalidation is filed under the generation it was read in.
	gen, err := l.cache.Generation(ctx)
	if err != nil {
		l.logger.Warn("catalog cache unavailable", zap.Error(err))
		return l.source.SearchProducts(ctx, term, SearchLimit)
	}
	if cached, ok, err := l.cache.Get(ctx, gen, key); err != nil {
		l.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	products, err := l.source.SearchProducts(ctx, term, SearchLimit)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, gen, key, products, l.ttl); err != nil {
		l.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return products, nil
}

// Get reads a product straight from the source so stock is current.
func (l *Lookup) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := l.source.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

// HandleEvent drops cached searches after any catalog or stock change.
func (l *Lookup) HandleEvent(ctx context.Context, e events.Event) error {
	l.logger.Debug("invalidating catalog cache", zap.String("kind", string(e.Kind)), zap.Int64("sale_code", e.SaleCode))
	return l.cache.Invalidate(ctx)
}

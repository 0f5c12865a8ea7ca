package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artlicor/backend/internal/cache"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
)

type sourceStub struct {
	products []domain.Product
	searches int
	lastTerm string
	// during runs inside SearchProducts, after the rows were read.
	during func()
}

func (s *sourceStub) SearchProducts(_ context.Context, term string, limit int) ([]domain.Product, error) {
	s.searches++
	s.lastTerm = term
	out := []domain.Product{}
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Description), strings.ToLower(term)) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	if s.during != nil {
		s.during()
	}
	return out, nil
}

func (s *sourceStub) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, errors.New("not found")
}

func TestSearchIgnoresShortTerms(t *testing.T) {
	src := &sourceStub{}
	l := NewLookup(src, nil, time.Minute, nil)

	got, err := l.Search(context.Background(), " v ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, src.searches)
}

func TestSearchCachesUntilStockEvent(t *testing.T) {
	src := &sourceStub{products: []domain.Product{{ID: "1", Description: "Vinho Tinto", StockQuantity: 4}}}
	bus := events.NewBus(nil)
	l := NewLookup(src, cache.NewMemoryCatalogCache(), time.Minute, nil)
	bus.Subscribe("catalog", l.HandleEvent)
	ctx := context.Background()

	first, err := l.Search(ctx, "vinho")
	require.NoError(t, err)
	require.Len(t, first, 1)

	src.products[0].StockQuantity = 3
	second, err := l.Search(ctx, "VINHO")
	require.NoError(t, err)
	assert.Equal(t, 4, second[0].StockQuantity)
	assert.Equal(t, 1, src.searches)

	bus.Publish(ctx, events.Event{Kind: events.SaleCommitted, SaleCode: 1})

	third, err := l.Search(ctx, "vinho")
	require.NoError(t, err)
	assert.Equal(t, 3, third[0].StockQuantity)
	assert.Equal(t, 2, src.searches)
}

func TestSearchRacingInvalidationIsNotCached(t *testing.T) {
	src := &sourceStub{products: []domain.Product{{ID: "1", Description: "Vodka Absolut 1L", StockQuantity: 8}}}
	bus := events.NewBus(nil)
	l := NewLookup(src, cache.NewMemoryCatalogCache(), time.Minute, nil)
	bus.Subscribe("catalog", l.HandleEvent)
	ctx := context.Background()

	// A sale commits between the read of the old stock and the cache write.
	src.during = func() {
		src.products[0].StockQuantity = 7
		bus.Publish(ctx, events.Event{Kind: events.SaleCommitted, ProductIDs: []string{"1"}, SaleCode: 1})
	}
	first, err := l.Search(ctx, "vodka")
	require.NoError(t, err)
	assert.Equal(t, 8, first[0].StockQuantity)

	src.during = nil
	second, err := l.Search(ctx, "vodka")
	require.NoError(t, err)
	assert.Equal(t, 7, second[0].StockQuantity)
	assert.Equal(t, 2, src.searches)
}

func TestSearchLimitsResults(t *testing.T) {
	src := &sourceStub{}
	for i := 0; i < 15; i++ {
		src.products = append(src.products, domain.Product{ID: string(rune('a' + i)), Description: "Cerveja"})
	}
	l := NewLookup(src, nil, 0, nil)

	got, err := l.Search(context.Background(), "cerveja")
	require.NoError(t, err)
	assert.Len(t, got, SearchLimit)
}

func TestGetReadsSource(t *testing.T) {
	src := &sourceStub{products: []domain.Product{{ID: "1", Description: "Gelo"}}}
	l := NewLookup(src, nil, 0, nil)

	p, err := l.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Gelo", p.Description)

	_, err = l.Get(context.Background(), "2")
	assert.Error(t, err)
}

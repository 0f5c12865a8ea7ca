package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func mustProduct(t *testing.T, s *Store, desc string, price int64, stock int) domain.Product {
	t.Helper()
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, domain.Product{Description: desc, Unit: domain.UnitPiece, CostPriceCents: price / 2, SalePriceCents: price})
	require.NoError(t, err)
	if stock > 0 {
		_, err = s.CreateStockEntry(ctx, domain.StockEntry{ProductID: p.ID, Quantity: stock})
		require.NoError(t, err)
	}
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	return *got
}

func mustPaymentMethod(t *testing.T, s *Store) domain.PaymentMethod {
	t.Helper()
	m, err := s.CreatePaymentMethod(context.Background(), domain.PaymentMethod{Description: "Dinheiro"})
	require.NoError(t, err)
	return *m
}

func saleOf(pm string, items ...domain.SaleItemRequest) domain.SaleRequest {
	var total int64
	for _, it := range items {
		total += it.TotalPriceCents
	}
	return domain.SaleRequest{PaymentMethodID: pm, TotalCents: total, PaidCents: total, Items: items}
}

func TestCreateAssignsSequentialCodes(t *testing.T) {
	s := New()
	a := mustProduct(t, s, "Vodka", 1000, 0)
	b := mustProduct(t, s, "Gin", 1000, 0)
	assert.Equal(t, "ART0001", a.Code)
	assert.Equal(t, "ART0002", b.Code)

	c1, err := s.CreateCustomer(context.Background(), domain.Customer{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "CLI001", c1.Code)

	pm := mustPaymentMethod(t, s)
	assert.Equal(t, "PG01", pm.Code)
}

func TestCodeGenerationSkipsCorruptCodes(t *testing.T) {
	s := New()
	p := mustProduct(t, s, "Vodka", 1000, 0)
	s.products[p.ID] = domain.Product{ID: p.ID, Code: "LEGACY", Description: "Vodka", Unit: domain.UnitPiece}

	next := mustProduct(t, s, "Gin", 1000, 0)
	assert.Equal(t, "ART0001", next.Code)
}

func TestCreateProductValidates(t *testing.T) {
	s := New()
	_, err := s.CreateProduct(context.Background(), domain.Product{Description: "", Unit: domain.UnitPiece})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = s.CreateProduct(context.Background(), domain.Product{Description: "X", Unit: "KG"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = s.CreateProduct(context.Background(), domain.Product{Description: "X", Unit: domain.UnitBox, SalePriceCents: -1})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestCommitSaleIsAtomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustProduct(t, s, "Vodka", 1000, 5)
	b := mustProduct(t, s, "Gin", 550, 1)
	pm := mustPaymentMethod(t, s)

	_, err := s.CommitSale(ctx, saleOf(pm.ID,
		domain.SaleItemRequest{ProductID: a.ID, Quantity: 2, UnitPriceCents: 1000, TotalPriceCents: 2000},
		domain.SaleItemRequest{ProductID: b.ID, Quantity: 2, UnitPriceCents: 550, TotalPriceCents: 1100},
	))
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	gotA, _ := s.GetProduct(ctx, a.ID)
	assert.Equal(t, 5, gotA.StockQuantity)
	history, _ := s.SalesHistory(ctx, time.Time{}, time.Now().Add(time.Hour))
	assert.Empty(t, history)

	committed, err := s.CommitSale(ctx, saleOf(pm.ID,
		domain.SaleItemRequest{ProductID: a.ID, Quantity: 2, UnitPriceCents: 1000, TotalPriceCents: 2000},
		domain.SaleItemRequest{ProductID: b.ID, Quantity: 1, UnitPriceCents: 550, TotalPriceCents: 550},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), committed.Code)

	gotA, _ = s.GetProduct(ctx, a.ID)
	gotB, _ := s.GetProduct(ctx, b.ID)
	assert.Equal(t, 3, gotA.StockQuantity)
	assert.Equal(t, 0, gotB.StockQuantity)

	lines, err := s.ListSaleLines(ctx, committed.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Vodka", lines[0].Description)
}

func TestCommitSaleRejectsUnknownReferences(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustProduct(t, s, "Vodka", 1000, 5)
	pm := mustPaymentMethod(t, s)
	item := domain.SaleItemRequest{ProductID: a.ID, Quantity: 1, UnitPriceCents: 1000, TotalPriceCents: 1000}

	_, err := s.CommitSale(ctx, saleOf("missing", item))
	assert.ErrorIs(t, err, store.ErrNotFound)

	req := saleOf(pm.ID, item)
	req.CustomerID = "missing"
	_, err = s.CommitSale(ctx, req)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.CommitSale(ctx, saleOf(pm.ID, domain.SaleItemRequest{ProductID: "missing", Quantity: 1, UnitPriceCents: 1, TotalPriceCents: 1}))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommitSaleHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.CommitSale(ctx, domain.SaleRequest{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestConcurrentCommitsNeverOversell(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := mustProduct(t, s, "Vodka", 1000, 10)
	pm := mustPaymentMethod(t, s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CommitSale(ctx, saleOf(pm.ID, domain.SaleItemRequest{ProductID: p.ID, Quantity: 1, UnitPriceCents: 1000, TotalPriceCents: 1000}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetProduct(ctx, p.ID)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestDeleteReferencedRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustProduct(t, s, "Vodka", 1000, 5)
	unused := mustProduct(t, s, "Licor", 1000, 0)
	pm := mustPaymentMethod(t, s)

	_, err := s.CommitSale(ctx, saleOf(pm.ID, domain.SaleItemRequest{ProductID: a.ID, Quantity: 1, UnitPriceCents: 1000, TotalPriceCents: 1000}))
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteProduct(ctx, a.ID), store.ErrReferenced)
	assert.ErrorIs(t, s.DeletePaymentMethod(ctx, pm.ID), store.ErrReferenced)
	assert.NoError(t, s.DeleteProduct(ctx, unused.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, unused.ID), store.ErrNotFound)
}

func TestStockEntryRejectsNegativeResult(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := mustProduct(t, s, "Vodka", 1000, 3)

	_, err := s.CreateStockEntry(ctx, domain.StockEntry{ProductID: p.ID, Quantity: -4})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	entry, err := s.CreateStockEntry(ctx, domain.StockEntry{ProductID: p.ID, Quantity: -1, Observation: "quebra"})
	require.NoError(t, err)
	assert.Equal(t, 2, entry.StockAfter)
	assert.Equal(t, "ART0001", entry.ProductCode)

	entries, err := s.ListStockEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "quebra", entries[0].Observation)

	_, err = s.CreateStockEntry(ctx, domain.StockEntry{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestReportsRespectDateRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustProduct(t, s, "Vodka", 1000, 10)
	b := mustProduct(t, s, "Gin", 550, 10)
	pm := mustPaymentMethod(t, s)
	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Maria"})
	require.NoError(t, err)

	day1 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	s.SetClock(func() time.Time { return day1 })
	_, err = s.CommitSale(ctx, saleOf(pm.ID, domain.SaleItemRequest{ProductID: a.ID, Quantity: 2, UnitPriceCents: 1000, TotalPriceCents: 2000}))
	require.NoError(t, err)

	s.SetClock(func() time.Time { return day2 })
	req := saleOf(pm.ID,
		domain.SaleItemRequest{ProductID: a.ID, Quantity: 1, UnitPriceCents: 900, TotalPriceCents: 900},
		domain.SaleItemRequest{ProductID: b.ID, Quantity: 1, UnitPriceCents: 550, TotalPriceCents: 550},
	)
	req.CustomerID = customer.ID
	_, err = s.CommitSale(ctx, req)
	require.NoError(t, err)

	all, err := s.SalesByProduct(ctx, day1.Truncate(24*time.Hour), day2.Truncate(24*time.Hour).Add(24*time.Hour), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ProductID)
	assert.Equal(t, int64(3), all[0].QuantitySold)
	assert.Equal(t, int64(2900), all[0].AmountInvoicedCents)

	onlyB, err := s.SalesByProduct(ctx, day1.Truncate(24*time.Hour), day2.Add(24*time.Hour), b.ID)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, int64(550), onlyB[0].AmountInvoicedCents)

	firstDay, err := s.SalesHistory(ctx, day1.Truncate(24*time.Hour), day1.Truncate(24*time.Hour).Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, firstDay, 1)
	assert.Equal(t, "ART-0001", firstDay[0].FormattedCode)

	history, err := s.SalesHistory(ctx, day1.Truncate(24*time.Hour), day2.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Maria", history[0].CustomerName)

	summary, err := s.SalesSummary(ctx, day1.Truncate(24*time.Hour), day2.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.SalesSummary{Count: 2, TotalCents: 3450}, summary)
}

func TestInventoryTotals(t *testing.T) {
	s := New()
	mustProduct(t, s, "Vodka", 1000, 2)
	mustProduct(t, s, "Gin", 500, 4)
	mustProduct(t, s, "Licor", 800, 0)

	totals, err := s.InventoryTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.InventoryTotals{TotalItems: 6, CostValueCents: 2000, SaleValueCents: 4000}, totals)
}

func TestSearchProducts(t *testing.T) {
	s := NewSeeded()
	got, err := s.SearchProducts(context.Background(), "cerveja", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cerveja Brahma Lata 350ml", got[0].Description)

	byCode, err := s.SearchProducts(context.Background(), "art0003", 10)
	require.NoError(t, err)
	require.Len(t, byCode, 1)

	limited, err := s.SearchProducts(context.Background(), "a", 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)
}

func TestStoreConfig(t *testing.T) {
	s := New()
	_, err := s.GetStoreConfig(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)

	saved, err := s.UpdateStoreConfig(context.Background(), domain.StoreConfig{StoreName: "Adega Central"})
	require.NoError(t, err)
	assert.Equal(t, "Adega Central", saved.StoreName)

	_, err = s.UpdateStoreConfig(context.Background(), domain.StoreConfig{StoreName: " "})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

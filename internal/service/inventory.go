package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/store"
)

func (s *Service) CreateStockEntry(ctx context.Context, req domain.StockEntryRequest) (domain.StockEntry, error) {
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" || req.Quantity == 0 {
		return domain.StockEntry{}, fmt.Errorf("%w: product_id and a non-zero quantity are required", store.ErrInvalidInput)
	}
	entry, err := s.repo.CreateStockEntry(ctx, domain.StockEntry{
		ProductID:   productID,
		Quantity:    req.Quantity,
		Observation: s.clean(req.Observation),
	})
	if err != nil {
		return domain.StockEntry{}, err
	}
	s.logger.Info("stock entry recorded",
		zap.String("product_id", entry.ProductID),
		zap.Int("quantity", entry.Quantity),
		zap.Int("stock_after", entry.StockAfter))
	s.publish(ctx, events.StockAdjusted, entry.ProductID)
	return *entry, nil
}

func (s *Service) ListStockEntries(ctx context.Context, limit int) ([]domain.StockEntry, error) {
	return s.repo.ListStockEntries(ctx, limit)
}

// GetSettings returns the stored configuration, or the fallback store name
// when nothing has been saved yet.
func (s *Service) GetSettings(ctx context.Context) (domain.StoreConfig, error) {
	cfg, err := s.repo.GetStoreConfig(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.StoreConfig{StoreName: s.fallbackStoreName}, nil
		}
		return domain.StoreConfig{}, err
	}
	return *cfg, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.StoreConfigRequest) (domain.StoreConfig, error) {
	name := s.clean(req.StoreName)
	if name == "" {
		return domain.StoreConfig{}, fmt.Errorf("%w: store_name is required", store.ErrInvalidInput)
	}
	saved, err := s.repo.UpdateStoreConfig(ctx, domain.StoreConfig{StoreName: name})
	if err != nil {
		return domain.StoreConfig{}, err
	}
	return *saved, nil
}

// storeName never fails; documents fall back to the configured default.
func (s *Service) storeName(ctx context.Context) string {
	cfg, err := s.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("store name lookup failed", zap.Error(err))
		return s.fallbackStoreName
	}
	return cfg.StoreName
}

// Dashboard gathers the home screen figures concurrently.
func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	now := s.now()
	local := now.In(s.location)
	dayStart := startOfDay(local)
	monthStart := dayStart.AddDate(0, 0, 1-dayStart.Day())

	var (
		dash     = domain.Dashboard{GeneratedAt: now, LowStock: []domain.Product{}}
		products []domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash.StoreName = s.storeName(gctx)
		return nil
	})
	g.Go(func() error {
		summary, err := s.repo.SalesSummary(gctx, dayStart, dayStart.AddDate(0, 0, 1))
		dash.Today = summary
		return err
	})
	g.Go(func() error {
		summary, err := s.repo.SalesSummary(gctx, monthStart, monthStart.AddDate(0, 1, 0))
		dash.Month = summary
		return err
	})
	g.Go(func() error {
		list, err := s.repo.ListProducts(gctx)
		products = list
		return err
	})
	g.Go(func() error {
		totals, err := s.repo.InventoryTotals(gctx)
		dash.Inventory = totals
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	for _, p := range products {
		if p.LowStock() {
			dash.LowStock = append(dash.LowStock, p)
		}
	}
	return dash, nil
}

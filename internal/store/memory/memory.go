package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"artlicor/backend/internal/codes"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/store"
	"artlicor/backend/internal/xid"
)

type storedSale struct {
	sale  domain.Sale
	items []domain.SaleItemRequest
}

// Store keeps every collection in maps guarded by one lock, which makes
// CommitSale and CreateStockEntry atomic.
type Store struct {
	mu             sync.RWMutex
	products       map[string]domain.Product
	customers      map[string]domain.Customer
	paymentMethods map[string]domain.PaymentMethod
	stockEntries   []domain.StockEntry
	sales          []storedSale
	storeConfig    *domain.StoreConfig
	saleSeq        int64
	now            func() time.Time
}

func New() *Store {
	return &Store{
		products:       make(map[string]domain.Product),
		customers:      make(map[string]domain.Customer),
		paymentMethods: make(map[string]domain.PaymentMethod),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store with a small beverage catalog for development.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	seedProducts := []struct {
		description string
		unit        domain.Unit
		cost, sale  int64
		stock, min  int
	}{
		{"Cerveja Heineken Long Neck 330ml", domain.UnitPiece, 520, 899, 96, 24},
		{"Cerveja Brahma Lata 350ml", domain.UnitPiece, 310, 549, 120, 48},
		{"Vodka Absolut 1L", domain.UnitPiece, 8490, 12990, 8, 4},
		{"Whisky Johnnie Walker Red Label 1L", domain.UnitPiece, 9990, 14990, 6, 3},
		{"Cachaça 51 965ml", domain.UnitPiece, 1290, 2190, 18, 6},
		{"Vinho Tinto Casillero del Diablo 750ml", domain.UnitPiece, 4590, 6990, 10, 4},
		{"Gin Tanqueray 750ml", domain.UnitPiece, 9490, 13990, 2, 3},
		{"Energético Red Bull 250ml (pack 4)", domain.UnitPackage, 2490, 3790, 12, 5},
		{"Água Mineral 500ml (caixa 12)", domain.UnitBox, 1190, 2390, 9, 4},
		{"Gelo em Cubos 5kg", domain.UnitPackage, 690, 1500, 0, 10},
	}
	for _, p := range seedProducts {
		created, err := s.CreateProduct(ctx, domain.Product{
			Description:    p.description,
			Unit:           p.unit,
			CostPriceCents: p.cost,
			SalePriceCents: p.sale,
			MinQuantity:    p.min,
		})
		if err != nil {
			panic(fmt.Sprintf("seed product %q: %v", p.description, err))
		}
		s.products[created.ID] = withStock(*created, p.stock)
	}

	for _, name := range []string{"Consumidor Final", "Maria Souza", "Bar do Zé"} {
		if _, err := s.CreateCustomer(ctx, domain.Customer{Name: name}); err != nil {
			panic(fmt.Sprintf("seed customer %q: %v", name, err))
		}
	}
	for _, desc := range []string{"Dinheiro", "Pix", "Cartão de Débito", "Cartão de Crédito"} {
		if _, err := s.CreatePaymentMethod(ctx, domain.PaymentMethod{Description: desc}); err != nil {
			panic(fmt.Sprintf("seed payment method %q: %v", desc, err))
		}
	}
	s.storeConfig = &domain.StoreConfig{StoreName: "Adega Art Licor", UpdatedAt: s.now()}
	return s
}

func withStock(p domain.Product, qty int) domain.Product {
	p.StockQuantity = qty
	return p
}

// SetClock overrides the time source used for new records.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (s *Store) SearchProducts(_ context.Context, term string, limit int) ([]domain.Product, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, limit)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Code), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Product) int { return strings.Compare(a.Description, b.Description) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]string, 0, len(s.products))
	for _, p := range s.products {
		existing = append(existing, p.Code)
	}
	product.ID = xid.UUID()
	product.Code = codes.Product.Next(codes.Product.Highest(existing))
	product.StockQuantity = 0
	product.CreatedAt = s.now()
	s.products[product.ID] = product

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	current.Description = product.Description
	current.Unit = product.Unit
	current.CostPriceCents = product.CostPriceCents
	current.SalePriceCents = product.SalePriceCents
	current.MinQuantity = product.MinQuantity
	s.products[current.ID] = current

	updated := current
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		for _, item := range sale.items {
			if item.ProductID == id {
				return store.ErrReferenced
			}
		}
	}
	for _, entry := range s.stockEntries {
		if entry.ProductID == id {
			return store.ErrReferenced
		}
	}
	delete(s.products, id)
	return nil
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Description) == "" || !p.Unit.Valid() {
		return store.ErrInvalidInput
	}
	if p.CostPriceCents < 0 || p.SalePriceCents < 0 || p.MinQuantity < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Customer) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]string, 0, len(s.customers))
	for _, c := range s.customers {
		existing = append(existing, c.Code)
	}
	customer.ID = xid.UUID()
	customer.Code = codes.Customer.Next(codes.Customer.Highest(existing))
	customer.CreatedAt = s.now()
	s.customers[customer.ID] = customer

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	current.Name = customer.Name
	s.customers[current.ID] = current

	updated := current
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.sale.CustomerID == id {
			return store.ErrReferenced
		}
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) ListPaymentMethods(_ context.Context) ([]domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PaymentMethod, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b domain.PaymentMethod) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (s *Store) GetPaymentMethod(_ context.Context, id string) (*domain.PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) CreatePaymentMethod(_ context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if strings.TrimSpace(method.Description) == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]string, 0, len(s.paymentMethods))
	for _, m := range s.paymentMethods {
		existing = append(existing, m.Code)
	}
	method.ID = xid.UUID()
	method.Code = codes.PaymentMethod.Next(codes.PaymentMethod.Highest(existing))
	method.CreatedAt = s.now()
	s.paymentMethods[method.ID] = method

	created := method
	return &created, nil
}

func (s *Store) UpdatePaymentMethod(_ context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if strings.TrimSpace(method.Description) == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.paymentMethods[method.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	current.Description = method.Description
	s.paymentMethods[current.ID] = current

	updated := current
	return &updated, nil
}

func (s *Store) DeletePaymentMethod(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paymentMethods[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.sale.PaymentMethodID == id {
			return store.ErrReferenced
		}
	}
	delete(s.paymentMethods, id)
	return nil
}

func (s *Store) CreateStockEntry(_ context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	if entry.ProductID == "" || entry.Quantity == 0 {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[entry.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	after := product.StockQuantity + entry.Quantity
	if after < 0 {
		return nil, store.ErrInsufficientStock
	}
	product.StockQuantity = after
	s.products[product.ID] = product

	entry.ID = xid.UUID()
	entry.ProductCode = product.Code
	entry.ProductDescription = product.Description
	entry.EntryDate = s.now()
	entry.StockAfter = after
	s.stockEntries = append(s.stockEntries, entry)

	created := entry
	return &created, nil
}

func (s *Store) ListStockEntries(_ context.Context, limit int) ([]domain.StockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockEntry, 0, len(s.stockEntries))
	for i := len(s.stockEntries) - 1; i >= 0; i-- {
		out = append(out, s.stockEntries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetStoreConfig(_ context.Context) (*domain.StoreConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.storeConfig == nil {
		return nil, store.ErrNotFound
	}
	cfg := *s.storeConfig
	return &cfg, nil
}

func (s *Store) UpdateStoreConfig(_ context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error) {
	if strings.TrimSpace(cfg.StoreName) == "" {
		return nil, store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.UpdatedAt = s.now()
	s.storeConfig = &cfg
	saved := cfg
	return &saved, nil
}

// CommitSale validates every reference and stock level before touching
// anything, then writes the header, lines and decrements under one lock.
func (s *Store) CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.ValidateSaleRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.paymentMethods[req.PaymentMethodID]; !ok {
		return nil, fmt.Errorf("payment method %s: %w", req.PaymentMethodID, store.ErrNotFound)
	}
	if req.CustomerID != "" {
		if _, ok := s.customers[req.CustomerID]; !ok {
			return nil, fmt.Errorf("customer %s: %w", req.CustomerID, store.ErrNotFound)
		}
	}
	for _, item := range req.Items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		if product.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("product %s: %w", product.Code, store.ErrInsufficientStock)
		}
	}

	for _, item := range req.Items {
		product := s.products[item.ProductID]
		product.StockQuantity -= item.Quantity
		s.products[product.ID] = product
	}

	s.saleSeq++
	sale := domain.Sale{
		ID:              xid.UUID(),
		Code:            s.saleSeq,
		FormattedCode:   codes.Sale(s.saleSeq),
		SaleDate:        s.now(),
		TotalCents:      req.TotalCents,
		PaidCents:       req.PaidCents,
		ChangeCents:     req.ChangeCents,
		CustomerID:      req.CustomerID,
		PaymentMethodID: req.PaymentMethodID,
	}
	items := make([]domain.SaleItemRequest, len(req.Items))
	copy(items, req.Items)
	s.sales = append(s.sales, storedSale{sale: sale, items: items})

	return &domain.CommittedSale{ID: sale.ID, Code: sale.Code, CreatedAt: sale.SaleDate}, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.sales {
		if stored.sale.ID == id {
			sale := s.withCustomerName(stored.sale)
			return &sale, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListSaleLines(_ context.Context, saleID string) ([]domain.SaleLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.sales {
		if stored.sale.ID != saleID {
			continue
		}
		lines := make([]domain.SaleLine, 0, len(stored.items))
		for _, item := range stored.items {
			lines = append(lines, domain.SaleLine{
				ProductID:       item.ProductID,
				Description:     s.products[item.ProductID].Description,
				Quantity:        item.Quantity,
				UnitPriceCents:  item.UnitPriceCents,
				TotalPriceCents: item.TotalPriceCents,
			})
		}
		return lines, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) SalesByProduct(_ context.Context, from time.Time, to time.Time, productID string) ([]domain.SalesByProductRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.SalesByProductRow)
	for _, stored := range s.sales {
		if !inRange(stored.sale.SaleDate, from, to) {
			continue
		}
		for _, item := range stored.items {
			if productID != "" && item.ProductID != productID {
				continue
			}
			row, ok := byProduct[item.ProductID]
			if !ok {
				p := s.products[item.ProductID]
				row = &domain.SalesByProductRow{ProductID: item.ProductID, ProductCode: p.Code, ProductDescription: p.Description}
				byProduct[item.ProductID] = row
			}
			row.QuantitySold += int64(item.Quantity)
			row.AmountInvoicedCents += item.TotalPriceCents
		}
	}

	rows := make([]domain.SalesByProductRow, 0, len(byProduct))
	for _, row := range byProduct {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b domain.SalesByProductRow) int {
		if a.QuantitySold != b.QuantitySold {
			if a.QuantitySold > b.QuantitySold {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ProductCode, b.ProductCode)
	})
	return rows, nil
}

func (s *Store) SalesHistory(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0)
	for i := len(s.sales) - 1; i >= 0; i-- {
		sale := s.sales[i].sale
		if inRange(sale.SaleDate, from, to) {
			out = append(out, s.withCustomerName(sale))
		}
	}
	return out, nil
}

func (s *Store) SalesSummary(_ context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.SalesSummary
	for _, stored := range s.sales {
		if inRange(stored.sale.SaleDate, from, to) {
			summary.Count++
			summary.TotalCents += stored.sale.TotalCents
		}
	}
	return summary, nil
}

func (s *Store) InventoryTotals(_ context.Context) (domain.InventoryTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals domain.InventoryTotals
	for _, p := range s.products {
		if p.StockQuantity <= 0 {
			continue
		}
		qty := int64(p.StockQuantity)
		totals.TotalItems += qty
		totals.CostValueCents += qty * p.CostPriceCents
		totals.SaleValueCents += qty * p.SalePriceCents
	}
	return totals, nil
}

func (s *Store) withCustomerName(sale domain.Sale) domain.Sale {
	if sale.CustomerID != "" {
		sale.CustomerName = s.customers[sale.CustomerID].Name
	}
	return sale
}

func inRange(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

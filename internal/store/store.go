package store

import (
	"context"
	"errors"
	"time"

	"artlicor/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrReferenced        = errors.New("record is referenced by existing sales")
)

// Repository is the persistence capability. Create methods assign the id and
// the sequential business code. CommitSale must be all-or-nothing.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error

	CreateStockEntry(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error)
	ListStockEntries(ctx context.Context, limit int) ([]domain.StockEntry, error)

	GetStoreConfig(ctx context.Context) (*domain.StoreConfig, error)
	UpdateStoreConfig(ctx context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error)

	CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)
	ListSaleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error)

	SalesByProduct(ctx context.Context, from time.Time, to time.Time, productID string) ([]domain.SalesByProductRow, error)
	SalesHistory(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error)
	InventoryTotals(ctx context.Context) (domain.InventoryTotals, error)
}

// ValidateSaleRequest applies the checks every CommitSale implementation shares.
func ValidateSaleRequest(req domain.SaleRequest) error {
	if req.PaymentMethodID == "" || len(req.Items) == 0 {
		return ErrInvalidInput
	}
	if req.TotalCents < 0 || req.PaidCents < req.TotalCents || req.ChangeCents != req.PaidCents-req.TotalCents {
		return ErrInvalidInput
	}
	var sum int64
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPriceCents < 0 {
			return ErrInvalidInput
		}
		if item.TotalPriceCents != int64(item.Quantity)*item.UnitPriceCents {
			return ErrInvalidInput
		}
		if _, dup := seen[item.ProductID]; dup {
			return ErrInvalidInput
		}
		seen[item.ProductID] = struct{}{}
		sum += item.TotalPriceCents
	}
	if sum != req.TotalCents {
		return ErrInvalidInput
	}
	return nil
}

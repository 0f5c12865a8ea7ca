package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"artlicor/backend/internal/catalog"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/export"
	"artlicor/backend/internal/logging"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/sales"
	"artlicor/backend/internal/store"
)

const DefaultStoreName = "Sua Loja"

var (
	ErrInvalidDateRange  = errors.New("end date is before start date")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrUnknownReference  = errors.New("customer or payment method does not exist")
)

type Deps struct {
	Repo      store.Repository
	Catalog   *catalog.Lookup
	Publisher events.Publisher
	Protocol  *sales.Protocol
	Registers *sales.Registry
	Renderer  *export.Renderer
	Location  *time.Location
	// FallbackStoreName is shown when store_config has no row yet.
	FallbackStoreName string
	Logger            *zap.Logger
}

type Service struct {
	repo              store.Repository
	catalog           *catalog.Lookup
	publisher         events.Publisher
	protocol          *sales.Protocol
	registers         *sales.Registry
	renderer          *export.Renderer
	location          *time.Location
	fallbackStoreName string
	sanitizer         *bluemonday.Policy
	logger            *zap.Logger
	now               func() time.Time
}

func New(deps Deps) *Service {
	logger := logging.OrNop(deps.Logger).Named("service")
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	lookup := deps.Catalog
	if lookup == nil {
		lookup = catalog.NewLookup(deps.Repo, nil, 0, logger)
	}
	registers := deps.Registers
	if registers == nil {
		registers = sales.NewRegistry()
	}
	protocol := deps.Protocol
	if protocol == nil {
		protocol = sales.NewProtocol(deps.Repo, deps.Publisher, sales.DefaultCommitTimeout, logger)
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = export.NewRenderer(money.DefaultFormatter(), location, "")
	}

	return &Service{
		repo:              deps.Repo,
		catalog:           lookup,
		publisher:         deps.Publisher,
		protocol:          protocol,
		registers:         registers,
		renderer:          renderer,
		location:          location,
		fallbackStoreName: defaultString(strings.TrimSpace(deps.FallbackStoreName), DefaultStoreName),
		sanitizer:         bluemonday.StrictPolicy(),
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for reports and the dashboard.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	return s.catalog.Search(ctx, term)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.catalog.Get(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	product, err := s.productFromRequest(req)
	if err != nil {
		return domain.Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("code", created.Code))
	s.publish(ctx, events.CatalogChanged, created.ID)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	product, err := s.productFromRequest(req)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id
	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.publish(ctx, events.CatalogChanged, updated.ID)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	s.publish(ctx, events.CatalogChanged, id)
	return nil
}

func (s *Service) productFromRequest(req domain.ProductRequest) (domain.Product, error) {
	description := s.clean(req.Description)
	if description == "" {
		return domain.Product{}, fmt.Errorf("%w: description is required", store.ErrInvalidInput)
	}
	unit := domain.Unit(strings.ToUpper(strings.TrimSpace(string(req.Unit))))
	if !unit.Valid() {
		return domain.Product{}, fmt.Errorf("%w: unit must be UND, PCT or CX", store.ErrInvalidInput)
	}
	cost, err := money.ParseAmount(req.CostPrice)
	if err != nil {
		return domain.Product{}, fmt.Errorf("cost_price: %w", err)
	}
	sale, err := money.ParseAmount(req.SalePrice)
	if err != nil {
		return domain.Product{}, fmt.Errorf("sale_price: %w", err)
	}
	if req.MinQuantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: min_quantity must not be negative", store.ErrInvalidInput)
	}
	return domain.Product{
		Description:    description,
		Unit:           unit,
		CostPriceCents: cost,
		SalePriceCents: sale,
		MinQuantity:    req.MinQuantity,
	}, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	name := s.clean(req.Name)
	if name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	created, err := s.repo.CreateCustomer(ctx, domain.Customer{Name: name})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerRequest) (domain.Customer, error) {
	name := s.clean(req.Name)
	if name == "" {
		return domain.Customer{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	updated, err := s.repo.UpdateCustomer(ctx, domain.Customer{ID: id, Name: name})
	if err != nil {
		return domain.Customer{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) GetPaymentMethod(ctx context.Context, id string) (domain.PaymentMethod, error) {
	m, err := s.repo.GetPaymentMethod(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	return *m, nil
}

func (s *Service) CreatePaymentMethod(ctx context.Context, req domain.PaymentMethodRequest) (domain.PaymentMethod, error) {
	description := s.clean(req.Description)
	if description == "" {
		return domain.PaymentMethod{}, fmt.Errorf("%w: description is required", store.ErrInvalidInput)
	}
	created, err := s.repo.CreatePaymentMethod(ctx, domain.PaymentMethod{Description: description})
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	return *created, nil
}

func (s *Service) UpdatePaymentMethod(ctx context.Context, id string, req domain.PaymentMethodRequest) (domain.PaymentMethod, error) {
	description := s.clean(req.Description)
	if description == "" {
		return domain.PaymentMethod{}, fmt.Errorf("%w: description is required", store.ErrInvalidInput)
	}
	updated, err := s.repo.UpdatePaymentMethod(ctx, domain.PaymentMethod{ID: id, Description: description})
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	return *updated, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, id string) error {
	return s.repo.DeletePaymentMethod(ctx, id)
}

// maxCleanPasses bounds how many layers of entity encoding clean unwraps.
const maxCleanPasses = 4

// clean strips markup from free text and trims it. Entities decoded in one
// pass are sanitized again, so encoded markup cannot reappear as tags.
func (s *Service) clean(raw string) string {
	text := strings.TrimSpace(raw)
	for pass := 0; pass < maxCleanPasses; pass++ {
		sanitized := s.sanitizer.Sanitize(text)
		next := strings.TrimSpace(html.UnescapeString(sanitized))
		if next == text {
			return next
		}
		text = next
	}
	// Still changing: keep the escaped form rather than decode it again.
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

func (s *Service) publish(ctx context.Context, kind events.Kind, productIDs ...string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.Event{Kind: kind, ProductIDs: productIDs})
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

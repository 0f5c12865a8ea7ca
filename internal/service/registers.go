package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"artlicor/backend/internal/checkout"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/sales"
	"artlicor/backend/internal/store"
)

func (s *Service) OpenRegister() sales.View {
	return s.registers.Open().View()
}

func (s *Service) Register(id string) (sales.View, error) {
	reg, err := s.registers.Get(id)
	if err != nil {
		return sales.View{}, err
	}
	return reg.View(), nil
}

// AddToRegister re-reads the product so the stock check sees current stock.
func (s *Service) AddToRegister(ctx context.Context, registerID string, req domain.RegisterItemRequest) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return reg.View(), fmt.Errorf("%w: product_id is required", store.ErrInvalidInput)
	}
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return reg.View(), err
	}
	return reg.Add(product)
}

func (s *Service) UpdateRegisterItem(registerID string, productID string, req domain.RegisterItemUpdate) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	if req.Quantity == nil && req.UnitPrice == nil {
		return reg.View(), fmt.Errorf("%w: quantity or unit_price is required", store.ErrInvalidInput)
	}

	// Both inputs are parsed before the cart is touched so a bad price never
	// leaves a half-applied edit behind.
	var price *int64
	if req.UnitPrice != nil {
		cents, err := money.ParseAmount(*req.UnitPrice)
		if err != nil {
			return reg.View(), fmt.Errorf("unit_price: %w", err)
		}
		price = &cents
	}
	return reg.UpdateLine(productID, req.Quantity, price)
}

func (s *Service) RemoveFromRegister(registerID string, productID string) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	return reg.Remove(productID)
}

func (s *Service) OpenCheckout(registerID string) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	return reg.OpenCheckout()
}

func (s *Service) CloseCheckout(registerID string) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	return reg.CloseCheckout()
}

func (s *Service) QuoteCheckout(registerID string, req domain.CheckoutRequest) (checkout.Quote, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return checkout.Quote{}, err
	}
	details, err := checkoutDetails(req)
	if err != nil {
		return checkout.Quote{}, err
	}
	return reg.Quote(details)
}

// ConfirmSale resolves the selected customer and payment method, then commits
// the register's cart.
func (s *Service) ConfirmSale(ctx context.Context, registerID string, req domain.CheckoutRequest) (sales.Outcome, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.Outcome{}, err
	}
	details, err := checkoutDetails(req)
	if err != nil {
		return sales.Outcome{}, err
	}

	if details.PaymentMethodID != "" {
		if _, err := s.repo.GetPaymentMethod(ctx, details.PaymentMethodID); err != nil {
			return sales.Outcome{}, s.referenceError("payment method", err)
		}
	}
	customerName := ""
	if details.CustomerID != "" {
		customer, err := s.repo.GetCustomer(ctx, details.CustomerID)
		if err != nil {
			return sales.Outcome{}, s.referenceError("customer", err)
		}
		customerName = customer.Name
	}

	return reg.Confirm(ctx, s.protocol, details, customerName)
}

func (s *Service) CancelRegister(registerID string, req domain.CancelRequest) (sales.View, error) {
	reg, err := s.registers.Get(registerID)
	if err != nil {
		return sales.View{}, err
	}
	return reg.Cancel(req.Confirm)
}

// PruneRegisters drops idle empty registers older than maxIdle.
func (s *Service) PruneRegisters(maxIdle time.Duration) int {
	return s.registers.Prune(s.now().Add(-maxIdle))
}

func (s *Service) referenceError(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s not found", ErrUnknownReference, what)
	}
	return err
}

// checkoutDetails reads the operator input. A blank paid amount counts as zero.
func checkoutDetails(req domain.CheckoutRequest) (checkout.Details, error) {
	details := checkout.Details{
		CustomerID:      strings.TrimSpace(req.CustomerID),
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
	}
	if strings.TrimSpace(req.PaidAmount) == "" {
		return details, nil
	}
	paid, err := money.ParseAmount(req.PaidAmount)
	if err != nil {
		return checkout.Details{}, fmt.Errorf("paid_amount: %w", err)
	}
	details.TenderedCents = paid
	return details, nil
}

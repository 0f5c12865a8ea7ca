// Package checkout computes change and validates payment before a sale is committed.
package checkout

import (
	"errors"
	"strings"
)

var (
	ErrMissingPaymentMethod = errors.New("payment method is required")
	ErrInsufficientPayment  = errors.New("paid amount is less than the sale total")
)

// Details is the operator input collected while checkout is open.
type Details struct {
	CustomerID      string `json:"customer_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
	TenderedCents   int64  `json:"tendered_cents"`
}

// Quote is what the checkout dialog shows for the current input.
type Quote struct {
	TotalCents    int64 `json:"total_cents"`
	TenderedCents int64 `json:"tendered_cents"`
	ChangeCents   int64 `json:"change_cents"`
	CanConfirm    bool  `json:"can_confirm"`
}

// ComputeChange returns tendered minus total. The result is negative when
// the payment does not cover the total.
func ComputeChange(totalCents, tenderedCents int64) int64 {
	return tenderedCents - totalCents
}

// Validate checks that a payment method was chosen and the tendered amount covers total.
func Validate(d Details, totalCents int64) error {
	if strings.TrimSpace(d.PaymentMethodID) == "" {
		return ErrMissingPaymentMethod
	}
	if d.TenderedCents < totalCents {
		return ErrInsufficientPayment
	}
	return nil
}

func NewQuote(d Details, totalCents int64) Quote {
	return Quote{
		TotalCents:    totalCents,
		TenderedCents: d.TenderedCents,
		ChangeCents:   ComputeChange(totalCents, d.TenderedCents),
		CanConfirm:    Validate(d, totalCents) == nil,
	}
}

// Package cart holds the pre-commit working state of a sale.
package cart

import (
	"errors"
	"fmt"

	"artlicor/backend/internal/domain"
)

var (
	ErrOutOfStock      = errors.New("product out of stock")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrNotInCart       = errors.New("product not in cart")
)

// Line is one product's entry. SubtotalCents is derived and only written by the cart.
type Line struct {
	ProductID      string `json:"product_id"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

func (l *Line) recompute() {
	l.SubtotalCents = int64(l.Quantity) * l.UnitPriceCents
}

// Cart keeps lines in insertion order with at most one line per product.
// It is not safe for concurrent use.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add appends product with quantity 1 at its sale price, or bumps the
// quantity of the existing line.
func (c *Cart) Add(product domain.Product) error {
	if product.StockQuantity <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, product.Description)
	}
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Quantity++
		c.lines[i].recompute()
		return nil
	}
	line := Line{
		ProductID:      product.ID,
		Code:           product.Code,
		Description:    product.Description,
		Quantity:       1,
		UnitPriceCents: product.SalePriceCents,
	}
	line.recompute()
	c.lines = append(c.lines, line)
	return nil
}

// UpdateQuantity replaces the quantity of a line. Stock is not checked here.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	return c.UpdateLine(productID, &quantity, nil)
}

// UpdateUnitPrice overrides the unit price of a line; any non-negative value is accepted.
func (c *Cart) UpdateUnitPrice(productID string, priceCents int64) error {
	return c.UpdateLine(productID, nil, &priceCents)
}

// UpdateLine changes quantity and unit price together. Nil fields are left
// as they are; nothing changes unless every given field is valid.
func (c *Cart) UpdateLine(productID string, quantity *int, priceCents *int64) error {
	if quantity != nil && *quantity < 1 {
		return ErrInvalidQuantity
	}
	if priceCents != nil && *priceCents < 0 {
		return ErrInvalidPrice
	}
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if quantity != nil {
		c.lines[i].Quantity = *quantity
	}
	if priceCents != nil {
		c.lines[i].UnitPriceCents = *priceCents
	}
	c.lines[i].recompute()
	return nil
}

// Remove drops the line for productID. Absent products are ignored.
func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.SubtotalCents
	}
	return total
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) index(productID string) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Package receipt projects a committed sale into a printable document model.
// Projection is pure; rendering lives in the export package.
package receipt

import (
	"time"

	"artlicor/backend/internal/cart"
	"artlicor/backend/internal/codes"
	"artlicor/backend/internal/domain"
)

type Item struct {
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Input struct {
	SaleCode     int64
	Items        []Item
	TotalCents   int64
	PaidCents    int64
	ChangeCents  int64
	CustomerName string
	// IssuedAt is the sale date on reprints and the commit time otherwise.
	IssuedAt time.Time
}

type Document struct {
	SaleCode     int64     `json:"sale_code"`
	Number       string    `json:"number"`
	IssuedAt     time.Time `json:"issued_at"`
	CustomerName string    `json:"customer_name,omitempty"`
	Items        []Item    `json:"items"`
	TotalCents   int64     `json:"total_cents"`
	PaidCents    int64     `json:"paid_cents"`
	ChangeCents  int64     `json:"change_cents"`
	FileName     string    `json:"file_name"`
}

func Project(in Input) Document {
	number := codes.Sale(in.SaleCode)
	items := make([]Item, len(in.Items))
	copy(items, in.Items)
	return Document{
		SaleCode:     in.SaleCode,
		Number:       number,
		IssuedAt:     in.IssuedAt,
		CustomerName: in.CustomerName,
		Items:        items,
		TotalCents:   in.TotalCents,
		PaidCents:    in.PaidCents,
		ChangeCents:  in.ChangeCents,
		FileName:     "Recibo-Venda-" + number + ".pdf",
	}
}

func ItemsFromCart(lines []cart.Line) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			SubtotalCents:  l.SubtotalCents,
		})
	}
	return items
}

func ItemsFromSale(lines []domain.SaleLine) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			Description:    l.Description,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			SubtotalCents:  l.TotalPriceCents,
		})
	}
	return items
}

package domain

import "time"

type Unit string

const (
	UnitPiece   Unit = "UND"
	UnitPackage Unit = "PCT"
	UnitBox     Unit = "CX"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitPiece, UnitPackage, UnitBox:
		return true
	}
	return false
}

type Product struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Description    string    `json:"description"`
	Unit           Unit      `json:"unit"`
	CostPriceCents int64     `json:"cost_price_cents"`
	SalePriceCents int64     `json:"sale_price_cents"`
	StockQuantity  int       `json:"stock_quantity"`
	MinQuantity    int       `json:"min_quantity"`
	CreatedAt      time.Time `json:"created_at"`
}

// LowStock reports whether stock is below the configured minimum.
func (p Product) LowStock() bool {
	return p.StockQuantity < p.MinQuantity
}

type ProductRequest struct {
	Description string `json:"description"`
	Unit        Unit   `json:"unit"`
	CostPrice   string `json:"cost_price"`
	SalePrice   string `json:"sale_price"`
	MinQuantity int    `json:"min_quantity"`
}

type Customer struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerRequest struct {
	Name string `json:"name"`
}

type PaymentMethod struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentMethodRequest struct {
	Description string `json:"description"`
}

type StockEntry struct {
	ID                 string    `json:"id"`
	ProductID          string    `json:"product_id"`
	ProductCode        string    `json:"product_code,omitempty"`
	ProductDescription string    `json:"product_description,omitempty"`
	Quantity           int       `json:"quantity"`
	Observation        string    `json:"observation,omitempty"`
	EntryDate          time.Time `json:"entry_date"`
	StockAfter         int       `json:"stock_after"`
}

type StockEntryRequest struct {
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Observation string `json:"observation"`
}

type StoreConfig struct {
	StoreName string    `json:"store_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoreConfigRequest struct {
	StoreName string `json:"store_name"`
}

// SaleItemRequest is one committed line as sent to the persistence layer.
type SaleItemRequest struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

// SaleRequest is the single atomic unit handed to the commit capability.
type SaleRequest struct {
	CustomerID      string            `json:"customer_id,omitempty"`
	PaymentMethodID string            `json:"payment_method_id"`
	TotalCents      int64             `json:"total_cents"`
	PaidCents       int64             `json:"paid_cents"`
	ChangeCents     int64             `json:"change_cents"`
	Items           []SaleItemRequest `json:"items"`
}

type CommittedSale struct {
	ID        string    `json:"id"`
	Code      int64     `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

type Sale struct {
	ID              string    `json:"id"`
	Code            int64     `json:"code"`
	FormattedCode   string    `json:"formatted_code"`
	SaleDate        time.Time `json:"sale_date"`
	TotalCents      int64     `json:"total_cents"`
	PaidCents       int64     `json:"paid_cents"`
	ChangeCents     int64     `json:"change_cents"`
	CustomerID      string    `json:"customer_id,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	PaymentMethodID string    `json:"payment_method_id"`
}

type SaleLine struct {
	ProductID       string `json:"product_id"`
	Description     string `json:"description"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type SalesByProductRow struct {
	ProductID           string `json:"product_id"`
	ProductCode         string `json:"product_code"`
	ProductDescription  string `json:"product_description"`
	QuantitySold        int64  `json:"quantity_sold"`
	AmountInvoicedCents int64  `json:"amount_invoiced_cents"`
}

type SalesByProductReport struct {
	Start              string              `json:"start"`
	End                string              `json:"end"`
	ProductID          string              `json:"product_id,omitempty"`
	Rows               []SalesByProductRow `json:"rows"`
	TotalQuantity      int64               `json:"total_quantity"`
	TotalInvoicedCents int64               `json:"total_invoiced_cents"`
	StoreName          string              `json:"store_name"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

type SalesHistoryReport struct {
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Sales       []Sale    `json:"sales"`
	TotalCents  int64     `json:"total_cents"`
	StoreName   string    `json:"store_name"`
	GeneratedAt time.Time `json:"generated_at"`
}

type StockCountRow struct {
	Code          string `json:"code"`
	Description   string `json:"description"`
	StockQuantity int    `json:"stock_quantity"`
}

type StockCountSheet struct {
	Rows        []StockCountRow `json:"rows"`
	StoreName   string          `json:"store_name"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type InventoryTotals struct {
	TotalItems     int64 `json:"total_items"`
	CostValueCents int64 `json:"cost_value_cents"`
	SaleValueCents int64 `json:"sale_value_cents"`
}

type SalesSummary struct {
	Count      int64 `json:"count"`
	TotalCents int64 `json:"total_cents"`
}

type Dashboard struct {
	StoreName   string          `json:"store_name"`
	Today       SalesSummary    `json:"today"`
	Month       SalesSummary    `json:"month"`
	LowStock    []Product       `json:"low_stock"`
	Inventory   InventoryTotals `json:"inventory"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type RegisterItemRequest struct {
	ProductID string `json:"product_id"`
}

// RegisterItemUpdate changes one cart line; nil fields are left as they are.
type RegisterItemUpdate struct {
	Quantity  *int    `json:"quantity,omitempty"`
	UnitPrice *string `json:"unit_price,omitempty"`
}

type CheckoutRequest struct {
	CustomerID      string `json:"customer_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
	PaidAmount      string `json:"paid_amount"`
}

type CancelRequest struct {
	Confirm bool `json:"confirm"`
}

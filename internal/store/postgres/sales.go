package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"artlicor/backend/internal/codes"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/store"
	"artlicor/backend/internal/xid"
)

// saleItemPayload is the jsonb element shape read by handle_new_sale.
type saleItemPayload struct {
	ProductID  string          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CommitSale invokes handle_new_sale, which inserts the header and lines and
// decrements stock inside one statement-level transaction.
func (s *Store) CommitSale(ctx context.Context, req domain.SaleRequest) (*domain.CommittedSale, error) {
	if err := store.ValidateSaleRequest(req); err != nil {
		return nil, err
	}
	if !xid.IsUUID(req.PaymentMethodID) {
		return nil, fmt.Errorf("payment method %s: %w", req.PaymentMethodID, store.ErrNotFound)
	}
	if req.CustomerID != "" && !xid.IsUUID(req.CustomerID) {
		return nil, fmt.Errorf("customer %s: %w", req.CustomerID, store.ErrNotFound)
	}

	items := make([]saleItemPayload, 0, len(req.Items))
	for _, item := range req.Items {
		if !xid.IsUUID(item.ProductID) {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, store.ErrNotFound)
		}
		items = append(items, saleItemPayload{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  money.ToDecimal(item.UnitPriceCents),
			TotalPrice: money.ToDecimal(item.TotalPriceCents),
		})
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	var committed domain.CommittedSale
	err = s.db.QueryRowContext(ctx, `
		SELECT new_sale_id, new_sale_code, new_sale_date
		FROM handle_new_sale($1, $2, $3, $4, $5, $6::jsonb)
	`,
		nullIfEmpty(req.CustomerID),
		req.PaymentMethodID,
		money.ToDecimal(req.TotalCents),
		money.ToDecimal(req.PaidCents),
		money.ToDecimal(req.ChangeCents),
		string(payload),
	).Scan(&committed.ID, &committed.Code, &committed.CreatedAt)
	if err != nil {
		switch pgCode(err) {
		case "AL001", "23514":
			return nil, fmt.Errorf("%w: %v", store.ErrInsufficientStock, err)
		case "P0002", "23503":
			return nil, fmt.Errorf("%w: %v", store.ErrNotFound, err)
		}
		return nil, err
	}
	committed.CreatedAt = committed.CreatedAt.UTC()
	return &committed, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	if !xid.IsUUID(id) {
		return nil, store.ErrNotFound
	}
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT s.id, s.sale_code, s.sale_date, s.total_amount, s.paid_amount, s.change_amount,
			s.customer_id, COALESCE(c.name, ''), s.payment_method_id
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSaleLines(ctx context.Context, saleID string) ([]domain.SaleLine, error) {
	if _, err := s.GetSale(ctx, saleID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT si.product_id, p.description, si.quantity, si.unit_price, si.total_price
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]domain.SaleLine, 0, 8)
	for rows.Next() {
		var line domain.SaleLine
		var unit, total decimal.Decimal
		if err := rows.Scan(&line.ProductID, &line.Description, &line.Quantity, &unit, &total); err != nil {
			return nil, err
		}
		line.UnitPriceCents = money.FromDecimal(unit)
		line.TotalPriceCents = money.FromDecimal(total)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) SalesByProduct(ctx context.Context, from time.Time, to time.Time, productID string) ([]domain.SalesByProductRow, error) {
	if productID != "" && !xid.IsUUID(productID) {
		return []domain.SalesByProductRow{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_code, product_description, quantity_sold, amount_invoiced
		FROM get_sales_by_product($1, $2, $3)
	`, from, to, nullIfEmpty(productID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.SalesByProductRow, 0, 32)
	for rows.Next() {
		var row domain.SalesByProductRow
		var amount decimal.Decimal
		if err := rows.Scan(&row.ProductID, &row.ProductCode, &row.ProductDescription, &row.QuantitySold, &amount); err != nil {
			return nil, err
		}
		row.AmountInvoicedCents = money.FromDecimal(amount)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SalesHistory(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_code, sale_date, total_amount, paid_amount, change_amount,
			customer_id, customer_name, payment_method_id
		FROM get_sales_history($1, $2)
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) SalesSummary(ctx context.Context, from time.Time, to time.Time) (domain.SalesSummary, error) {
	var summary domain.SalesSummary
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_date >= $1 AND sale_date < $2
	`, from, to).Scan(&summary.Count, &total)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary.TotalCents = money.FromDecimal(total)
	return summary, nil
}

func (s *Store) InventoryTotals(ctx context.Context) (domain.InventoryTotals, error) {
	var totals domain.InventoryTotals
	var cost, sale decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT total_items, cost_value, sale_value FROM get_inventory_totals()
	`).Scan(&totals.TotalItems, &cost, &sale)
	if err != nil {
		return domain.InventoryTotals{}, err
	}
	totals.CostValueCents = money.FromDecimal(cost)
	totals.SaleValueCents = money.FromDecimal(sale)
	return totals, nil
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	var total, paid, change decimal.Decimal
	var customerID sql.NullString
	if err := row.Scan(&sale.ID, &sale.Code, &sale.SaleDate, &total, &paid, &change, &customerID, &sale.CustomerName, &sale.PaymentMethodID); err != nil {
		return domain.Sale{}, err
	}
	sale.FormattedCode = codes.Sale(sale.Code)
	sale.SaleDate = sale.SaleDate.UTC()
	sale.TotalCents = money.FromDecimal(total)
	sale.PaidCents = money.FromDecimal(paid)
	sale.ChangeCents = money.FromDecimal(change)
	if customerID.Valid {
		sale.CustomerID = customerID.String
	}
	return sale, nil
}

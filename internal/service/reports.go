package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/export"
	"artlicor/backend/internal/receipt"
	"artlicor/backend/internal/store"
)

const dateLayout = "2006-01-02"

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// DateRange is an inclusive range of local calendar days. From and To are the
// half-open instant bounds handed to the store.
type DateRange struct {
	Start string
	End   string
	From  time.Time
	To    time.Time
}

// ParseDateRange reads "YYYY-MM-DD" bounds in the store's time zone. Missing
// bounds default to the first day of the current month and today.
func (s *Service) ParseDateRange(start string, end string) (DateRange, error) {
	today := startOfDay(s.now().In(s.location))

	from := today.AddDate(0, 0, 1-today.Day())
	if trimmed := strings.TrimSpace(start); trimmed != "" {
		parsed, err := time.ParseInLocation(dateLayout, trimmed, s.location)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: start must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		from = parsed
	}
	to := today
	if trimmed := strings.TrimSpace(end); trimmed != "" {
		parsed, err := time.ParseInLocation(dateLayout, trimmed, s.location)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: end must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		to = parsed
	}
	if to.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{
		Start: from.Format(dateLayout),
		End:   to.Format(dateLayout),
		From:  from,
		To:    to.AddDate(0, 0, 1),
	}, nil
}

func (s *Service) SalesByProduct(ctx context.Context, start string, end string, productID string) (domain.SalesByProductReport, error) {
	rng, err := s.ParseDateRange(start, end)
	if err != nil {
		return domain.SalesByProductReport{}, err
	}
	productID = strings.TrimSpace(productID)
	rows, err := s.repo.SalesByProduct(ctx, rng.From, rng.To, productID)
	if err != nil {
		return domain.SalesByProductReport{}, err
	}

	report := domain.SalesByProductReport{
		Start:       rng.Start,
		End:         rng.End,
		ProductID:   productID,
		Rows:        rows,
		StoreName:   s.storeName(ctx),
		GeneratedAt: s.now(),
	}
	for _, row := range rows {
		report.TotalQuantity += row.QuantitySold
		report.TotalInvoicedCents += row.AmountInvoicedCents
	}
	return report, nil
}

func (s *Service) SalesByProductFile(ctx context.Context, start string, end string, productID string, format string) (File, error) {
	report, err := s.SalesByProduct(ctx, start, end, productID)
	if err != nil {
		return File{}, err
	}
	switch format {
	case "csv":
		body, err := s.renderer.SalesByProductCSV(report)
		return File{Name: s.renderer.FileName(export.SalesByProductFileBase, report.GeneratedAt, "csv"), ContentType: "text/csv; charset=utf-8", Body: body}, err
	case "html":
		body, err := s.renderer.SalesByProductHTML(report)
		return File{Name: s.renderer.FileName(export.SalesByProductFileBase, report.GeneratedAt, "html"), ContentType: "text/html; charset=utf-8", Body: body}, err
	case "pdf":
		body, err := s.renderer.SalesByProductPDF(report)
		return File{Name: s.renderer.FileName(export.SalesByProductFileBase, report.GeneratedAt, "pdf"), ContentType: "application/pdf", Body: body}, err
	}
	return File{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func (s *Service) SalesHistory(ctx context.Context, start string, end string) (domain.SalesHistoryReport, error) {
	rng, err := s.ParseDateRange(start, end)
	if err != nil {
		return domain.SalesHistoryReport{}, err
	}
	list, err := s.repo.SalesHistory(ctx, rng.From, rng.To)
	if err != nil {
		return domain.SalesHistoryReport{}, err
	}

	report := domain.SalesHistoryReport{
		Start:       rng.Start,
		End:         rng.End,
		Sales:       list,
		StoreName:   s.storeName(ctx),
		GeneratedAt: s.now(),
	}
	for _, sale := range list {
		report.TotalCents += sale.TotalCents
	}
	return report, nil
}

func (s *Service) SalesHistoryPDF(ctx context.Context, start string, end string) (File, error) {
	report, err := s.SalesHistory(ctx, start, end)
	if err != nil {
		return File{}, err
	}
	body, err := s.renderer.SalesHistoryPDF(report)
	if err != nil {
		return File{}, err
	}
	return File{Name: s.renderer.FileName(export.SalesHistoryFileBase, report.GeneratedAt, "pdf"), ContentType: "application/pdf", Body: body}, nil
}

// StockCount lists every product by description for a physical count.
func (s *Service) StockCount(ctx context.Context) (domain.StockCountSheet, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.StockCountSheet{}, err
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
	})

	sheet := domain.StockCountSheet{
		Rows:        make([]domain.StockCountRow, 0, len(products)),
		StoreName:   s.storeName(ctx),
		GeneratedAt: s.now(),
	}
	for _, p := range products {
		sheet.Rows = append(sheet.Rows, domain.StockCountRow{Code: p.Code, Description: p.Description, StockQuantity: p.StockQuantity})
	}
	return sheet, nil
}

func (s *Service) StockCountPDF(ctx context.Context) (File, error) {
	sheet, err := s.StockCount(ctx)
	if err != nil {
		return File{}, err
	}
	body, err := s.renderer.StockCountPDF(sheet)
	if err != nil {
		return File{}, err
	}
	return File{Name: s.renderer.FileName(export.StockCountFileBase, sheet.GeneratedAt, "pdf"), ContentType: "application/pdf", Body: body}, nil
}

func (s *Service) InventoryTotals(ctx context.Context) (domain.InventoryTotals, error) {
	return s.repo.InventoryTotals(ctx)
}

// SaleReceipt rebuilds the receipt of a stored sale.
func (s *Service) SaleReceipt(ctx context.Context, saleID string) (receipt.Document, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return receipt.Document{}, err
	}
	lines, err := s.repo.ListSaleLines(ctx, sale.ID)
	if err != nil {
		return receipt.Document{}, err
	}
	return receipt.Project(receipt.Input{
		SaleCode:     sale.Code,
		Items:        receipt.ItemsFromSale(lines),
		TotalCents:   sale.TotalCents,
		PaidCents:    sale.PaidCents,
		ChangeCents:  sale.ChangeCents,
		CustomerName: sale.CustomerName,
		IssuedAt:     sale.SaleDate,
	}), nil
}

func (s *Service) SaleReceiptPDF(ctx context.Context, saleID string) (File, error) {
	doc, err := s.SaleReceipt(ctx, saleID)
	if err != nil {
		return File{}, err
	}
	body, err := s.renderer.ReceiptPDF(doc, s.storeName(ctx))
	if err != nil {
		return File{}, err
	}
	return File{Name: doc.FileName, ContentType: "application/pdf", Body: body}, nil
}

func (s *Service) SaleReceiptEscpos(ctx context.Context, saleID string) (export.EscposReceipt, error) {
	doc, err := s.SaleReceipt(ctx, saleID)
	if err != nil {
		return export.EscposReceipt{}, err
	}
	return s.renderer.Escpos(doc, s.storeName(ctx))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

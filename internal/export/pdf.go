package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/receipt"
)

const (
	pageMarginMM = 14.0
	rowHeightMM  = 7.0
)

type column struct {
	title string
	width float64
	align string
}

// pdfDoc wraps fpdf with the cp1252 translator needed by the core fonts.
type pdfDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newPDF(storeName string) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMarginMM, 15, pageMarginMM)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	doc := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pageW, _ := pdf.GetPageSize()
	if r.hasLogo() {
		const logoW = 30.0
		pdf.ImageOptions(r.logoPath, (pageW-logoW)/2, 15, logoW, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetXY(pageMarginMM, 45)
	pdf.CellFormat(pageW-2*pageMarginMM, 10, doc.tr(reportTitle(storeName)), "", 1, "C", false, 0, "")
	return doc
}

func (r *Renderer) hasLogo() bool {
	if r.logoPath == "" {
		return false
	}
	switch strings.ToLower(filepath.Ext(r.logoPath)) {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		return false
	}
	info, err := os.Stat(r.logoPath)
	return err == nil && !info.IsDir()
}

func (d *pdfDoc) centered(size float64, text string) {
	pageW, _ := d.pdf.GetPageSize()
	d.pdf.SetFont("Helvetica", "", size)
	d.pdf.CellFormat(pageW-2*pageMarginMM, 6, d.tr(text), "", 1, "C", false, 0, "")
}

func (d *pdfDoc) line(size float64, text string) {
	d.pdf.SetFont("Helvetica", "", size)
	d.pdf.CellFormat(0, 6, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *pdfDoc) table(columns []column, rows [][]string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.SetFillColor(41, 128, 185)
	d.pdf.SetTextColor(255, 255, 255)
	for _, c := range columns {
		d.pdf.CellFormat(c.width, rowHeightMM, d.tr(c.title), "1", 0, "C", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(0, 0, 0)
	for i, row := range rows {
		fill := i%2 == 1
		d.pdf.SetFillColor(245, 245, 245)
		for j, c := range columns {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			d.pdf.CellFormat(c.width, rowHeightMM, d.tr(cell), "1", 0, c.align, fill, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *pdfDoc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ReceiptPDF renders the sale receipt.
func (r *Renderer) ReceiptPDF(doc receipt.Document, storeName string) ([]byte, error) {
	p := r.newPDF(storeName)
	p.pdf.Ln(4)
	p.line(12, "Recibo da Venda: "+doc.Number)
	p.line(12, "Data: "+r.dateTime(doc.IssuedAt))
	if doc.CustomerName != "" {
		p.line(12, "Cliente: "+doc.CustomerName)
	}

	rows := make([][]string, 0, len(doc.Items))
	for _, item := range doc.Items {
		rows = append(rows, []string{
			item.Description,
			strconv.Itoa(item.Quantity),
			r.money.Format(item.UnitPriceCents),
			r.money.Format(item.SubtotalCents),
		})
	}
	p.table([]column{
		{title: "Produto", width: 92, align: "L"},
		{title: "Qtd.", width: 18, align: "R"},
		{title: "Preço Unit.", width: 36, align: "R"},
		{title: "Subtotal", width: 36, align: "R"},
	}, rows)

	p.pdf.Ln(4)
	p.line(12, "Total: "+r.money.Format(doc.TotalCents))
	p.line(12, "Valor Pago: "+r.money.Format(doc.PaidCents))
	p.line(12, "Troco: "+r.money.Format(doc.ChangeCents))
	return p.bytes()
}

func (r *Renderer) SalesByProductPDF(report domain.SalesByProductReport) ([]byte, error) {
	p := r.newPDF(report.StoreName)
	p.centered(14, "Relatório de Vendas por Produto")
	p.centered(10, fmt.Sprintf("Período: %s a %s", brDate(report.Start), brDate(report.End)))

	rows := make([][]string, 0, len(report.Rows)+1)
	for _, row := range report.Rows {
		rows = append(rows, []string{
			row.ProductCode,
			row.ProductDescription,
			strconv.FormatInt(row.QuantitySold, 10),
			r.money.Format(row.AmountInvoicedCents),
		})
	}
	rows = append(rows, []string{"", "Total", strconv.FormatInt(report.TotalQuantity, 10), r.money.Format(report.TotalInvoicedCents)})

	p.table([]column{
		{title: "Código", width: 26, align: "L"},
		{title: "Produto", width: 86, align: "L"},
		{title: "Qtd. Vendida", width: 30, align: "R"},
		{title: "Valor Faturado", width: 40, align: "R"},
	}, rows)
	return p.bytes()
}

func (r *Renderer) SalesHistoryPDF(report domain.SalesHistoryReport) ([]byte, error) {
	p := r.newPDF(report.StoreName)
	p.centered(14, "Histórico de Vendas")
	p.centered(10, fmt.Sprintf("Período: %s a %s", brDate(report.Start), brDate(report.End)))

	rows := make([][]string, 0, len(report.Sales)+1)
	for _, sale := range report.Sales {
		rows = append(rows, []string{
			sale.FormattedCode,
			r.dateTime(sale.SaleDate),
			sale.CustomerName,
			r.money.Format(sale.TotalCents),
			r.money.Format(sale.PaidCents),
			r.money.Format(sale.ChangeCents),
		})
	}
	rows = append(rows, []string{"", "", "Total", r.money.Format(report.TotalCents), "", ""})

	p.table([]column{
		{title: "Venda", width: 22, align: "L"},
		{title: "Data", width: 38, align: "L"},
		{title: "Cliente", width: 46, align: "L"},
		{title: "Total", width: 26, align: "R"},
		{title: "Pago", width: 26, align: "R"},
		{title: "Troco", width: 24, align: "R"},
	}, rows)
	return p.bytes()
}

// StockCountPDF renders the count sheet with a blank column for the manual count.
func (r *Renderer) StockCountPDF(sheet domain.StockCountSheet) ([]byte, error) {
	p := r.newPDF(sheet.StoreName)
	p.centered(14, "Folha de Contagem de Estoque")
	p.centered(10, "Data de Emissão: "+r.date(sheet.GeneratedAt))

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, []string{row.Code, row.Description, strconv.Itoa(row.StockQuantity), ""})
	}
	p.table([]column{
		{title: "Código", width: 26, align: "L"},
		{title: "Produto", width: 88, align: "L"},
		{title: "Quantidade (Sistema)", width: 34, align: "R"},
		{title: "Contagem (Manual)", width: 34, align: "C"},
	}, rows)
	return p.bytes()
}

// brDate turns "2026-04-30" into "30/04/2026"; other input is returned as is.
func brDate(isoDate string) string {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return isoDate
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

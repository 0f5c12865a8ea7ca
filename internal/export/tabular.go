package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"

	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/money"
)

// SalesByProductCSV writes a semicolon separated sheet; amounts use a decimal
// comma so spreadsheets in pt-BR read them as numbers.
func (r *Renderer) SalesByProductCSV(report domain.SalesByProductReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	records := [][]string{
		{"Código", "Produto", "Qtd. Vendida", "Valor Faturado"},
	}
	for _, row := range report.Rows {
		records = append(records, []string{
			row.ProductCode,
			row.ProductDescription,
			strconv.FormatInt(row.QuantitySold, 10),
			money.Plain(row.AmountInvoicedCents),
		})
	}
	records = append(records, []string{"", "Total", strconv.FormatInt(report.TotalQuantity, 10), money.Plain(report.TotalInvoicedCents)})

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

var salesByProductHTMLTmpl = template.Must(template.New("sales-by-product").Parse(`<!doctype html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8" />
  <title>Relatório de Vendas por Produto</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    th { background: #2980b9; color: #fff; }
    .num { text-align: right; }
    h2, h3 { margin-bottom: 4px; text-align: center; }
  </style>
</head>
<body>
  <h2 id="title">{{.Title}}</h2>
  <h3>Relatório de Vendas por Produto</h3>
  <p id="period" style="text-align:center;">Período: {{.Start}} a {{.End}}</p>
  <table id="rows">
    <thead><tr><th>Código</th><th>Produto</th><th>Qtd. Vendida</th><th>Valor Faturado</th></tr></thead>
    <tbody>{{range .Rows}}<tr><td>{{.Code}}</td><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.Amount}}</td></tr>{{end}}</tbody>
    <tfoot><tr><th colspan="2">Total</th><th class="num">{{.TotalQuantity}}</th><th class="num">{{.TotalAmount}}</th></tr></tfoot>
  </table>
  <p>Gerado em {{.GeneratedAt}}</p>
</body>
</html>
`))

type htmlRow struct {
	Code        string
	Description string
	Quantity    int64
	Amount      string
}

type salesByProductView struct {
	Title         string
	Start         string
	End           string
	Rows          []htmlRow
	TotalQuantity int64
	TotalAmount   string
	GeneratedAt   string
}

// SalesByProductHTML renders a printable page. Every field goes through
// html/template escaping.
func (r *Renderer) SalesByProductHTML(report domain.SalesByProductReport) ([]byte, error) {
	view := salesByProductView{
		Title:         reportTitle(report.StoreName),
		Start:         brDate(report.Start),
		End:           brDate(report.End),
		Rows:          make([]htmlRow, 0, len(report.Rows)),
		TotalQuantity: report.TotalQuantity,
		TotalAmount:   r.money.Format(report.TotalInvoicedCents),
		GeneratedAt:   r.dateTime(report.GeneratedAt),
	}
	for _, row := range report.Rows {
		view.Rows = append(view.Rows, htmlRow{
			Code:        row.ProductCode,
			Description: row.ProductDescription,
			Quantity:    row.QuantitySold,
			Amount:      r.money.Format(row.AmountInvoicedCents),
		})
	}

	var buf bytes.Buffer
	if err := salesByProductHTMLTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// Package export renders receipts and reports into the formats the store
// prints or downloads: PDF, ESC/POS, CSV and printable HTML.
package export

import (
	"fmt"
	"time"

	"artlicor/backend/internal/money"
)

// Renderer holds the presentation settings shared by every export format.
type Renderer struct {
	money    *money.Formatter
	location *time.Location
	logoPath string
}

func NewRenderer(formatter *money.Formatter, location *time.Location, logoPath string) *Renderer {
	if formatter == nil {
		formatter = money.DefaultFormatter()
	}
	if location == nil {
		location = time.UTC
	}
	return &Renderer{money: formatter, location: location, logoPath: logoPath}
}

func (r *Renderer) dateTime(t time.Time) string {
	return t.In(r.location).Format("02/01/2006 15:04:05")
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.location).Format("02/01/2006")
}

// reportTitle is the heading printed on every document.
func reportTitle(storeName string) string {
	return storeName + " – ART LICOR"
}

// FileName builds a dated download name such as
// "Relatorio_Vendas_por_Produto_2026-04-30.pdf".
func (r *Renderer) FileName(base string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", base, at.In(r.location).Format("2006-01-02"), ext)
}

const (
	SalesByProductFileBase = "Relatorio_Vendas_por_Produto"
	SalesHistoryFileBase   = "Historico_de_Vendas"
	StockCountFileBase     = "Folha_Contagem_Estoque"
)

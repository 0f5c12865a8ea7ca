package export

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"artlicor/backend/internal/receipt"
)

const escposWidth = 42

// EscposReceipt is a thermal printer job plus its plain text preview.
type EscposReceipt struct {
	Number       string `json:"number"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

// Escpos renders the receipt for an ESC/POS printer using code page 850.
func (r *Renderer) Escpos(doc receipt.Document, storeName string) (EscposReceipt, error) {
	rule := strings.Repeat("=", escposWidth)
	thin := strings.Repeat("-", escposWidth)

	lines := []string{
		reportTitle(storeName),
		rule,
		"Recibo da Venda: " + doc.Number,
		"Data: " + r.dateTime(doc.IssuedAt),
	}
	if doc.CustomerName != "" {
		lines = append(lines, "Cliente: "+doc.CustomerName)
	}
	lines = append(lines, thin)
	for _, item := range doc.Items {
		lines = append(lines, item.Description)
		lines = append(lines, padLeft(fmt.Sprintf("%d x %s = %s", item.Quantity, r.money.Format(item.UnitPriceCents), r.money.Format(item.SubtotalCents)), escposWidth))
	}
	lines = append(lines,
		thin,
		labelled("Total", r.money.Format(doc.TotalCents)),
		labelled("Valor Pago", r.money.Format(doc.PaidCents)),
		labelled("Troco", r.money.Format(doc.ChangeCents)),
		rule,
		"Obrigado pela preferência!",
		"",
	)

	preview := strings.Join(lines, "\n")
	encoded, err := encoding.ReplaceUnsupported(charmap.CodePage850.NewEncoder()).String(preview + "\n")
	if err != nil {
		return EscposReceipt{}, fmt.Errorf("encode receipt: %w", err)
	}

	// ESC @ resets the printer, ESC t 2 selects PC850, GS V A cuts the paper.
	job := []byte{0x1b, 0x40, 0x1b, 0x74, 0x02}
	job = append(job, encoded...)
	job = append(job, 0x1d, 0x56, 0x41, 0x10)

	return EscposReceipt{
		Number:       doc.Number,
		EscposBase64: base64.StdEncoding.EncodeToString(job),
		PreviewText:  preview,
		FileName:     "Recibo-Venda-" + doc.Number + ".bin",
	}, nil
}

func labelled(label string, value string) string {
	gap := escposWidth - len([]rune(label)) - len([]rune(value))
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

func padLeft(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

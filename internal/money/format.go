package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders cents as a localized currency string.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

func NewFormatter(tag language.Tag, symbol string) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag), symbol: symbol}
}

// DefaultFormatter formats Brazilian reais.
func DefaultFormatter() *Formatter {
	return NewFormatter(language.BrazilianPortuguese, "R$")
}

func (f *Formatter) Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := f.printer.Sprintf("%.2f", float64(cents)/100)
	if f.symbol == "" {
		return sign + amount
	}
	return sign + f.symbol + " " + amount
}

// Package money converts between operator-entered text and integer cents.
//
// All amounts in the system are non-negative values with two decimal places,
// held as int64 cents. Text input follows the Brazilian convention ("1.234,56")
// but a plain dot decimal ("12.50") is accepted too.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// ParseAmount reads a display amount and returns cents, rounding half-up at
// the third decimal place.
func ParseAmount(raw string) (int64, error) {
	normalized := normalize(raw)
	if normalized == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return FromDecimal(d), nil
}

// ParseQuantity reads a whole-unit quantity. Zero and negative values are
// returned as-is; range checks belong to the caller.
func ParseQuantity(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	qty, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return qty, nil
}

// FromDecimal rounds d to two places and returns it in cents.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// ToDecimal returns cents as a two-place decimal.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Plain renders cents the way an input field shows them: "25,50".
func Plain(cents int64) string {
	return strings.Replace(ToDecimal(cents).StringFixed(2), ".", ",", 1)
}

func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, s)

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	if strings.Count(s, ".") > 1 {
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

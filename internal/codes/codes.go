// Package codes generates the human-facing sequential codes of catalog
// records and formats sale numbers.
package codes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrProductNotFound is returned when the last known code cannot be read.
var ErrProductNotFound = errors.New("product not found")

// Sequence is a prefix followed by a zero-padded counter.
type Sequence struct {
	Prefix string
	Width  int
}

var (
	Product       = Sequence{Prefix: "ART", Width: 4}
	Customer      = Sequence{Prefix: "CLI", Width: 3}
	PaymentMethod = Sequence{Prefix: "PG", Width: 2}
)

func (s Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.Width, n)
}

func (s Sequence) First() string {
	return s.Format(1)
}

// Parse returns the counter of code.
func (s Sequence) Parse(code string) (int64, error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, s.Prefix) {
		return 0, fmt.Errorf("%w: %q", ErrProductNotFound, code)
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(code, s.Prefix), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrProductNotFound, code)
	}
	return n, nil
}

// Next returns the code after last. An empty or unreadable last code yields
// the first code of the sequence.
func (s Sequence) Next(last string) string {
	n, err := s.Parse(last)
	if err != nil {
		return s.First()
	}
	return s.Format(n + 1)
}

// Highest returns the largest readable code among candidates, or "" if none.
func (s Sequence) Highest(candidates []string) string {
	best := int64(-1)
	for _, c := range candidates {
		if n, err := s.Parse(c); err == nil && n > best {
			best = n
		}
	}
	if best < 0 {
		return ""
	}
	return s.Format(best)
}

// Sale formats a sale number for receipts: 42 -> "ART-0042".
func Sale(n int64) string {
	return fmt.Sprintf("ART-%04d", n)
}

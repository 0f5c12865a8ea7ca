package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	assert.Equal(t, "ART0001", Product.Next(""))
	assert.Equal(t, "ART0013", Product.Next("ART0012"))
	assert.Equal(t, "ART10000", Product.Next("ART9999"))
	assert.Equal(t, "CLI004", Customer.Next("CLI003"))
	assert.Equal(t, "PG10", PaymentMethod.Next("PG09"))
}

func TestNextFallsBackOnCorruptCode(t *testing.T) {
	assert.Equal(t, "ART0001", Product.Next("XYZ"))
	assert.Equal(t, "ART0001", Product.Next("ARTabc"))

	_, err := Product.Parse("ART-12")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestHighestSkipsUnreadable(t *testing.T) {
	assert.Equal(t, "ART0010", Product.Highest([]string{"ART0002", "junk", "ART0010", "ART0009"}))
	assert.Equal(t, "", Product.Highest([]string{"junk"}))
}

func TestSale(t *testing.T) {
	assert.Equal(t, "ART-0042", Sale(42))
	assert.Equal(t, "ART-12345", Sale(12345))
}

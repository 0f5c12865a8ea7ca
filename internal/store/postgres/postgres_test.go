package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"artlicor/backend/internal/store"
)

var _ store.Repository = (*Store)(nil)

func TestSchemaDeclaresProcedures(t *testing.T) {
	for _, fn := range []string{"handle_new_sale", "get_sales_by_product", "get_sales_history", "get_inventory_totals"} {
		assert.Contains(t, Schema, "FUNCTION "+fn+"(")
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%`, escapeLike("50%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\x`, escapeLike(`c:\x`))
}

func TestPgErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"})
	assert.True(t, isForeignKeyViolation(wrapped))
	assert.False(t, isUniqueViolation(wrapped))
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isCheckViolation(&pgconn.PgError{Code: "23514"}))
	assert.Empty(t, pgCode(errors.New("plain")))
}

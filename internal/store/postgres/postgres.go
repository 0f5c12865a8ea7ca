package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"artlicor/backend/internal/codes"
	"artlicor/backend/internal/domain"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/store"
	"artlicor/backend/internal/xid"
)

//go:embed schema.sql
var Schema string

// Advisory lock keys serializing code generation per collection.
const (
	lockProductCode       int64 = 710_001
	lockCustomerCode      int64 = 710_002
	lockPaymentMethodCode int64 = 710_003
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ApplySchema creates the tables and stored procedures if they are missing.
func (s *Store) ApplySchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

const productColumns = `id, code, description, unit, cost_price, sale_price, stock_quantity, min_quantity, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var cost, sale decimal.Decimal
	if err := row.Scan(&p.ID, &p.Code, &p.Description, &p.Unit, &cost, &sale, &p.StockQuantity, &p.MinQuantity, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	p.CostPriceCents = money.FromDecimal(cost)
	p.SalePriceCents = money.FromDecimal(sale)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY code`)
}

func (s *Store) SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 10
	}
	pattern := "%" + escapeLike(strings.TrimSpace(term)) + "%"
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE code ILIKE $1 OR description ILIKE $1
		ORDER BY description
		LIMIT $2
	`, pattern, limit)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if !xid.IsUUID(id) {
		return nil, store.ErrNotFound
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	code, err := nextCode(ctx, tx, lockProductCode, "products", codes.Product)
	if err != nil {
		return nil, err
	}

	created, err := scanProduct(tx.QueryRowContext(ctx, `
		INSERT INTO products (code, description, unit, cost_price, sale_price, stock_quantity, min_quantity)
		VALUES ($1,$2,$3,$4,$5,0,$6)
		RETURNING `+productColumns,
		code, product.Description, string(product.Unit), money.ToDecimal(product.CostPriceCents), money.ToDecimal(product.SalePriceCents), product.MinQuantity))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if !xid.IsUUID(product.ID) {
		return nil, store.ErrNotFound
	}

	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET description = $2, unit = $3, cost_price = $4, sale_price = $5, min_quantity = $6
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID, product.Description, string(product.Unit), money.ToDecimal(product.CostPriceCents), money.ToDecimal(product.SalePriceCents), product.MinQuantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM products WHERE id = $1`, id)
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Description) == "" || !p.Unit.Valid() {
		return store.ErrInvalidInput
	}
	if p.CostPriceCents < 0 || p.SalePriceCents < 0 || p.MinQuantity < 0 {
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, name, created_at FROM customers ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	if !xid.IsUUID(id) {
		return nil, store.ErrNotFound
	}
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `SELECT id, code, name, created_at FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	code, err := nextCode(ctx, tx, lockCustomerCode, "customers", codes.Customer)
	if err != nil {
		return nil, err
	}

	created := customer
	err = tx.QueryRowContext(ctx, `
		INSERT INTO customers (code, name) VALUES ($1,$2)
		RETURNING id, code, created_at
	`, code, customer.Name).Scan(&created.ID, &created.Code, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created.CreatedAt = created.CreatedAt.UTC()
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if !xid.IsUUID(customer.ID) {
		return nil, store.ErrNotFound
	}

	var updated domain.Customer
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers SET name = $2 WHERE id = $1
		RETURNING id, code, name, created_at
	`, customer.ID, customer.Name).Scan(&updated.ID, &updated.Code, &updated.Name, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM customers WHERE id = $1`, id)
}

func (s *Store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code, description, created_at FROM payment_methods ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]domain.PaymentMethod, 0, 8)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Code, &m.Description, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (s *Store) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	if !xid.IsUUID(id) {
		return nil, store.ErrNotFound
	}
	var m domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `SELECT id, code, description, created_at FROM payment_methods WHERE id = $1`, id).
		Scan(&m.ID, &m.Code, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func (s *Store) CreatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if strings.TrimSpace(method.Description) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	code, err := nextCode(ctx, tx, lockPaymentMethodCode, "payment_methods", codes.PaymentMethod)
	if err != nil {
		return nil, err
	}

	created := method
	err = tx.QueryRowContext(ctx, `
		INSERT INTO payment_methods (code, description) VALUES ($1,$2)
		RETURNING id, code, created_at
	`, code, method.Description).Scan(&created.ID, &created.Code, &created.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created.CreatedAt = created.CreatedAt.UTC()
	return &created, nil
}

func (s *Store) UpdatePaymentMethod(ctx context.Context, method domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if strings.TrimSpace(method.Description) == "" {
		return nil, store.ErrInvalidInput
	}
	if !xid.IsUUID(method.ID) {
		return nil, store.ErrNotFound
	}

	var updated domain.PaymentMethod
	err := s.db.QueryRowContext(ctx, `
		UPDATE payment_methods SET description = $2 WHERE id = $1
		RETURNING id, code, description, created_at
	`, method.ID, method.Description).Scan(&updated.ID, &updated.Code, &updated.Description, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	updated.CreatedAt = updated.CreatedAt.UTC()
	return &updated, nil
}

func (s *Store) DeletePaymentMethod(ctx context.Context, id string) error {
	return s.deleteByID(ctx, `DELETE FROM payment_methods WHERE id = $1`, id)
}

func (s *Store) deleteByID(ctx context.Context, query string, id string) error {
	if !xid.IsUUID(id) {
		return store.ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrReferenced
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateStockEntry(ctx context.Context, entry domain.StockEntry) (*domain.StockEntry, error) {
	if entry.Quantity == 0 {
		return nil, store.ErrInvalidInput
	}
	if !xid.IsUUID(entry.ProductID) {
		return nil, store.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created := entry
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2
		WHERE id = $1
		RETURNING stock_quantity, code, description
	`, entry.ProductID, entry.Quantity).Scan(&created.StockAfter, &created.ProductCode, &created.ProductDescription)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if isCheckViolation(err) {
			return nil, store.ErrInsufficientStock
		}
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO stock_entries (product_id, quantity, observation, stock_after)
		VALUES ($1,$2,$3,$4)
		RETURNING id, entry_date
	`, entry.ProductID, entry.Quantity, strings.TrimSpace(entry.Observation), created.StockAfter).Scan(&created.ID, &created.EntryDate)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created.EntryDate = created.EntryDate.UTC()
	return &created, nil
}

func (s *Store) ListStockEntries(ctx context.Context, limit int) ([]domain.StockEntry, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT se.id, se.product_id, p.code, p.description, se.quantity, se.observation, se.entry_date, se.stock_after
		FROM stock_entries se
		JOIN products p ON p.id = se.product_id
		ORDER BY se.entry_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockEntry, 0, limit)
	for rows.Next() {
		var e domain.StockEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.ProductCode, &e.ProductDescription, &e.Quantity, &e.Observation, &e.EntryDate, &e.StockAfter); err != nil {
			return nil, err
		}
		e.EntryDate = e.EntryDate.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetStoreConfig(ctx context.Context) (*domain.StoreConfig, error) {
	var cfg domain.StoreConfig
	err := s.db.QueryRowContext(ctx, `SELECT store_name, updated_at FROM store_config WHERE id = 1`).
		Scan(&cfg.StoreName, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return &cfg, nil
}

func (s *Store) UpdateStoreConfig(ctx context.Context, cfg domain.StoreConfig) (*domain.StoreConfig, error) {
	if strings.TrimSpace(cfg.StoreName) == "" {
		return nil, store.ErrInvalidInput
	}

	saved := cfg
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO store_config (id, store_name, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id)
		DO UPDATE SET store_name = EXCLUDED.store_name, updated_at = now()
		RETURNING updated_at
	`, cfg.StoreName).Scan(&saved.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved.UpdatedAt = saved.UpdatedAt.UTC()
	return &saved, nil
}

// nextCode reads the highest code of table under a transaction-scoped
// advisory lock and returns its successor.
func nextCode(ctx context.Context, tx *sql.Tx, lockKey int64, table string, seq codes.Sequence) (string, error) {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return "", err
	}

	var last sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT code FROM `+table+`
		WHERE code LIKE $1
		ORDER BY length(code) DESC, code DESC
		LIMIT 1
	`, seq.Prefix+"%").Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return seq.Next(last.String), nil
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == "23503"
}

func isCheckViolation(err error) bool {
	return pgCode(err) == "23514"
}

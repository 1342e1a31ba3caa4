package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/bitetrack/sales-engine/internal/core/domain"
)

// MySQLAdapter is the authoritative store. Every write method runs one
// transaction; stock decrements are version-checked so a lost race surfaces
// as domain.ErrConflict for the service layer to retry.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
)

// classify maps driver-level failures onto the domain taxonomy. Deadlocks and
// lock-wait timeouts are retryable conflicts; dead connections and expired
// deadlines mean the store is unavailable.
func classify(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout {
			return fmt.Errorf("%v: %w", err, domain.ErrConflict)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
	}
	return err
}

// reserve applies one stock decrement inside tx. The UPDATE only matches while
// the row still carries the version captured at validation time and has enough
// stock, so no committed state can hold a negative count.
func reserve(ctx context.Context, tx *sql.Tx, r domain.Reservation) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ? AND stock >= ?`,
		r.Quantity, r.ProductID, r.Version, r.Quantity,
	)
	if err != nil {
		return classify(fmt.Errorf("reserve stock: %w", err))
	}

	rows, _ := res.RowsAffected()
	if rows != 0 {
		return nil
	}

	var stock, version int
	err = tx.QueryRowContext(ctx,
		`SELECT stock, version FROM products WHERE id = ?`, r.ProductID,
	).Scan(&stock, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %s: %w", r.ProductID, domain.ErrNotFound)
	}
	if err != nil {
		return classify(fmt.Errorf("recheck stock: %w", err))
	}
	if version == r.Version && stock < r.Quantity {
		return fmt.Errorf("product %s has %d of %d requested: %w",
			r.ProductID, stock, r.Quantity, domain.ErrInsufficientStock)
	}
	return fmt.Errorf("product %s version moved: %w", r.ProductID, domain.ErrConflict)
}

func (m *MySQLAdapter) CreateSale(ctx context.Context, sale domain.Sale, reservations []domain.Reservation) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	for _, r := range reservations {
		if err := reserve(ctx, tx, r); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, seller_id, total_amount, amount_paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.CustomerID, sale.SellerID, sale.TotalAmount, sale.AmountPaid, sale.CreatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("insert sale: %w", err))
	}

	for i, it := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, line_no, product_id, quantity, price_at_sale)
			VALUES (?, ?, ?, ?, ?)`,
			sale.ID, i, it.ProductID, it.Quantity, it.PriceAtSale,
		)
		if err != nil {
			return classify(fmt.Errorf("insert sale item %d: %w", i, err))
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE customers SET last_transaction = ? WHERE id = ?`,
		sale.CreatedAt, sale.CustomerID,
	)
	if err != nil {
		return classify(fmt.Errorf("update customer: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit sale: %w", err))
	}
	return nil
}

func (m *MySQLAdapter) ApplyPayment(ctx context.Context, saleID string, amount decimal.Decimal) (*domain.Sale, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	// Relative increment against the stored value, so concurrent payments
	// compose instead of overwriting each other.
	res, err := tx.ExecContext(ctx,
		`UPDATE sales SET amount_paid = amount_paid + ? WHERE id = ?`,
		amount, saleID,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("apply payment: %w", err))
	}

	// Zero rows can also mean a no-op zero payment, so check existence before
	// reporting the sale missing.
	if rows, _ := res.RowsAffected(); rows == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM sales WHERE id = ?`, saleID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale %s: %w", saleID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, classify(fmt.Errorf("recheck sale: %w", err))
		}
	}

	sale, err := scanSale(ctx, tx, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("sale %s: %w", saleID, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit payment: %w", err))
	}
	return sale, nil
}

func (m *MySQLAdapter) CreateWriteOff(ctx context.Context, w domain.InventoryWriteOff, r domain.Reservation) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	if err := reserve(ctx, tx, r); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO write_offs (id, product_id, quantity, reason, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.ProductID, w.Quantity, string(w.Reason), w.Cost, w.CreatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("insert write-off: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit write-off: %w", err))
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, price, stock, version, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Count, &p.Version, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query product: %w", err))
	}
	return &p, nil
}

func (m *MySQLAdapter) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	var last sql.NullTime
	err := m.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, last_transaction
		FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &last)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query customer: %w", err))
	}
	if last.Valid {
		c.LastTransaction = &last.Time
	}
	return &c, nil
}

func (m *MySQLAdapter) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	var s domain.Seller
	err := m.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM sellers WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &s.Email)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query seller: %w", err))
	}
	return &s, nil
}

func (m *MySQLAdapter) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	return scanSale(ctx, m.db, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanSale(ctx context.Context, q querier, id string) (*domain.Sale, error) {
	var s domain.Sale
	err := q.QueryRowContext(ctx, `
		SELECT id, customer_id, seller_id, total_amount, amount_paid, created_at
		FROM sales WHERE id = ?`, id,
	).Scan(&s.ID, &s.CustomerID, &s.SellerID, &s.TotalAmount, &s.AmountPaid, &s.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query sale: %w", err))
	}

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity, price_at_sale
		FROM sale_items WHERE sale_id = ? ORDER BY line_no`, id,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("query sale items: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.PriceAtSale); err != nil {
			return nil, classify(fmt.Errorf("scan sale item: %w", err))
		}
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate sale items: %w", err))
	}
	return &s, nil
}

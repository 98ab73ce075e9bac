// Package storage is the SQLite-backed cart/expense store. It owns every
// persisted row; the tracking workers operate on snapshots handed out here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cartwatch/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row lookup by id matches nothing.
var ErrNotFound = errors.New("not found")

// ErrExpensePurchased is returned when an already purchased expense is moved
// to the cart.
var ErrExpensePurchased = errors.New("cannot move a purchased expense to cart")

const expenseDateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (name, amount_cents, category, expense_date, is_purchased)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Amount.Cents, e.Category, e.Date.Format(expenseDateLayout), e.IsPurchased)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"name", e.Name,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, amount_cents, category, expense_date, is_purchased, created_at
		 FROM expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.listExpenses(ctx,
		`SELECT id, name, amount_cents, category, expense_date, is_purchased, created_at
		 FROM expenses ORDER BY expense_date DESC, id DESC`)
}

func (r *SQLiteRepository) ListUnpurchasedExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.listExpenses(ctx,
		`SELECT id, name, amount_cents, category, expense_date, is_purchased, created_at
		 FROM expenses WHERE is_purchased = 0 ORDER BY expense_date DESC, id DESC`)
}

func (r *SQLiteRepository) listExpenses(ctx context.Context, query string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) SetExpensePurchased(ctx context.Context, id int64, purchased bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET is_purchased = ? WHERE id = ?`, purchased, id)
	if err != nil {
		return fmt.Errorf("set expense purchased: %w", err)
	}
	return requireAffected(res)
}

// MoveExpenseToCart turns an unpurchased expense into a cart item and removes
// the expense, atomically. The expense amount becomes the estimated price.
func (r *SQLiteRepository) MoveExpenseToCart(ctx context.Context, id int64) (core.CartItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.CartItem{}, fmt.Errorf("begin move to cart: %w", err)
	}
	defer tx.Rollback()

	e, err := scanExpense(tx.QueryRowContext(ctx,
		`SELECT id, name, amount_cents, category, expense_date, is_purchased, created_at
		 FROM expenses WHERE id = ?`, id))
	if err != nil {
		return core.CartItem{}, err
	}
	if e.IsPurchased {
		return core.CartItem{}, ErrExpensePurchased
	}

	estimated := e.Amount.Float64()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO cart_items (name, estimated_price, quantity) VALUES (?, ?, 1)`,
		e.Name, estimated)
	if err != nil {
		return core.CartItem{}, fmt.Errorf("insert cart item: %w", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return core.CartItem{}, fmt.Errorf("cart item insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return core.CartItem{}, fmt.Errorf("delete moved expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.CartItem{}, fmt.Errorf("commit move to cart: %w", err)
	}

	slog.InfoContext(ctx, "Expense moved to cart", "expense_id", id, "cart_item_id", itemID)

	return core.CartItem{
		ID:             itemID,
		Name:           e.Name,
		EstimatedPrice: &estimated,
		Quantity:       1,
	}, nil
}

// --- Cart items ---

func (r *SQLiteRepository) CreateCartItem(ctx context.Context, c core.CartItem) (int64, error) {
	status := core.TrackingState(c.ProductURL, c.DesiredPrice)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_items (name, estimated_price, quantity, product_url, desired_price, price_check_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, nullFloat(c.EstimatedPrice), c.Quantity, c.ProductURL, nullFloat(c.DesiredPrice), string(status))
	if err != nil {
		return 0, fmt.Errorf("create cart item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cart item insert id: %w", err)
	}

	slog.InfoContext(ctx, "Cart item saved", "id", id, "name", c.Name, "status", status)
	return id, nil
}

func (r *SQLiteRepository) GetCartItem(ctx context.Context, id int64) (core.CartItem, error) {
	row := r.db.QueryRowContext(ctx, selectCartItem+` WHERE id = ?`, id)
	return scanCartItem(row)
}

func (r *SQLiteRepository) ListCartItems(ctx context.Context) ([]core.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, selectCartItem+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	return collectCartItems(rows)
}

// ListTrackable returns the sweep's candidate set: items with a product URL
// whose status keeps them in rotation. The WHERE clause mirrors
// core.TrackingStatus.Sweepable.
func (r *SQLiteRepository) ListTrackable(ctx context.Context) ([]core.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		selectCartItem+` WHERE product_url != '' AND price_check_status IN (?, ?, ?, ?) ORDER BY id`,
		string(core.StatusNone), string(core.StatusTracking),
		string(core.StatusTrackingUpdated), string(core.StatusErrorFetching))
	if err != nil {
		return nil, fmt.Errorf("list trackable items: %w", err)
	}
	defer rows.Close()
	return collectCartItems(rows)
}

func (r *SQLiteRepository) DeleteCartItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return requireAffected(res)
}

// UpdateCartItemTracking replaces the tracking fields of an item. The status
// is recomputed from the new fields and the last observed price and check
// timestamp are reset, so the next sweep starts from a clean slate.
func (r *SQLiteRepository) UpdateCartItemTracking(ctx context.Context, id int64, productURL string, desiredPrice *float64) error {
	status := core.TrackingState(productURL, desiredPrice)

	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items
		 SET product_url = ?, desired_price = ?, price_check_status = ?,
		     current_price = NULL, last_checked = NULL
		 WHERE id = ?`,
		productURL, nullFloat(desiredPrice), string(status), id)
	if err != nil {
		return fmt.Errorf("update cart item tracking: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Cart item tracking updated", "id", id, "status", status)
	return nil
}

func (r *SQLiteRepository) UpdateCartItemSuggestion(ctx context.Context, id int64, suggestion string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET suggestion = ? WHERE id = ?`, suggestion, id)
	if err != nil {
		return fmt.Errorf("update cart item suggestion: %w", err)
	}
	return requireAffected(res)
}

// RecordPriceCheck persists the outcome of one price check and returns the
// final status. The threshold comparison lives here, next to the row: a new
// price at or below the desired price overrides whatever the checker
// computed with BELOW_DESIRED, and a failure on an item still in its first
// TRACKING read degrades to ERROR_FETCHING. Exactly one write per call.
func (r *SQLiteRepository) RecordPriceCheck(ctx context.Context, id int64, price *float64, status core.TrackingStatus, checkedAt time.Time) (core.TrackingStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin price check write: %w", err)
	}
	defer tx.Rollback()

	var (
		desired sql.NullFloat64
		current string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT desired_price, price_check_status FROM cart_items WHERE id = ?`, id).
		Scan(&desired, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read cart item for price check: %w", err)
	}

	final := status
	switch {
	case price != nil && desired.Valid && *price <= desired.Float64:
		final = core.StatusBelowDesired
	case price != nil:
		final = core.StatusTrackingUpdated
	case status == core.StatusErrorFetching:
		final = core.StatusErrorFetching
	case core.TrackingStatus(current) == core.StatusTracking:
		final = core.StatusErrorFetching
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE cart_items
		 SET current_price = ?, price_check_status = ?, last_checked = ?
		 WHERE id = ?`,
		nullFloat(price), string(final), checkedAt.UnixMilli(), id)
	if err != nil {
		return "", fmt.Errorf("write price check: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit price check: %w", err)
	}

	return final, nil
}

// --- Settings ---

func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.UserSettings, error) {
	var budget sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT total_budget_cents FROM user_settings WHERE id = 1`).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserSettings{}, nil
	}
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}

	settings := core.UserSettings{}
	if budget.Valid {
		settings.TotalBudget = &core.Money{Cents: budget.Int64}
	}
	return settings, nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, budget *core.Money) error {
	var cents sql.NullInt64
	if budget != nil {
		cents = sql.NullInt64{Int64: budget.Cents, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (id, total_budget_cents) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET total_budget_cents = excluded.total_budget_cents`,
		cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// --- scanning helpers ---

const selectCartItem = `SELECT id, name, estimated_price, quantity, suggestion,
	product_url, desired_price, current_price, price_check_status, last_checked, created_at
	FROM cart_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		rawDate string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Amount.Cents, &e.Category, &rawDate, &e.IsPurchased, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	e.Date, err = time.Parse(expenseDateLayout, rawDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", rawDate, err)
	}
	return e, nil
}

func scanCartItem(row rowScanner) (core.CartItem, error) {
	var (
		c           core.CartItem
		estimated   sql.NullFloat64
		desired     sql.NullFloat64
		current     sql.NullFloat64
		status      string
		lastChecked sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &estimated, &c.Quantity, &c.Suggestion,
		&c.ProductURL, &desired, &current, &status, &lastChecked, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CartItem{}, ErrNotFound
	}
	if err != nil {
		return core.CartItem{}, fmt.Errorf("scan cart item: %w", err)
	}

	if estimated.Valid {
		c.EstimatedPrice = &estimated.Float64
	}
	if desired.Valid {
		c.DesiredPrice = &desired.Float64
	}
	if current.Valid {
		c.CurrentPrice = &current.Float64
	}
	if lastChecked.Valid {
		c.LastChecked = &lastChecked.Int64
	}
	c.Status = core.TrackingStatus(status)
	return c, nil
}

func collectCartItems(rows *sql.Rows) ([]core.CartItem, error) {
	var items []core.CartItem
	for rows.Next() {
		c, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

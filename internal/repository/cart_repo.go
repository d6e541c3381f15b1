package repository

import (
	"context"
	"database/sql"

	"github.com/mokabook/bookstore/internal/models"
)

type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

const cartLinesQuery = `
	SELECT c.id, c.user_id, c.book_id, c.quantity, b.title, b.price, b.stock
	FROM cart_items c
	JOIN books b ON b.id = c.book_id
	WHERE c.user_id = $1
	ORDER BY c.book_id
`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryCartLines(ctx context.Context, q querier, query string, userID int64) ([]models.CartLine, error) {
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.Quantity, &l.Title, &l.UnitPrice, &l.Stock); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListByUser returns the user's cart joined with current book prices.
func (r *CartRepo) ListByUser(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return queryCartLines(ctx, r.db, cartLinesQuery, userID)
}

// LockForCheckout reads the cart like ListByUser but locks the cart rows and
// their books until tx ends. Rows are locked in book id order.
func (r *CartRepo) LockForCheckout(ctx context.Context, tx *sql.Tx, userID int64) ([]models.CartLine, error) {
	return queryCartLines(ctx, tx, cartLinesQuery+" FOR UPDATE", userID)
}

// AddItem creates the cart line or increments its quantity, returning the new quantity.
func (r *CartRepo) AddItem(ctx context.Context, userID, bookID int64) (int, error) {
	query := `
		INSERT INTO cart_items (user_id, book_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET quantity = cart_items.quantity + 1
		RETURNING quantity
	`
	var qty int
	err := r.db.QueryRowContext(ctx, query, userID, bookID).Scan(&qty)
	return qty, err
}

// Decrease lowers the quantity by one and deletes the line when it would reach zero.
func (r *CartRepo) Decrease(ctx context.Context, userID, bookID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = quantity - 1 WHERE user_id = $1 AND book_id = $2 AND quantity > 1`,
		userID, bookID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	return r.Remove(ctx, userID, bookID)
}

func (r *CartRepo) Remove(ctx context.Context, userID, bookID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`,
		userID, bookID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *CartRepo) ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mokabook/bookstore/internal/models"
)

const ordersAuthorityKey = "orders_authority_key"

type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// CreateTx inserts o and its items inside tx, filling in the generated ids.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_price, status, authority)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := tx.QueryRowContext(ctx, query, o.UserID, o.TotalPrice, string(o.Status), o.Authority).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, ordersAuthorityKey) {
			return ErrDuplicateAuthority
		}
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, book_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := tx.QueryRowContext(ctx, itemQuery, o.ID, it.BookID, it.Quantity, it.UnitPrice).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

// DecrementStockTx takes qty copies out of stock, flooring at zero.
func (r *OrderRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, bookID int64, qty int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE books SET stock = GREATEST(stock - $2, 0) WHERE id = $1`,
		bookID, qty)
	return err
}

// GetForUser loads an order with its items. Orders of other users are reported as not found.
func (r *OrderRepo) GetForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	var o models.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, status, authority, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, orderID, userID).Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.Authority, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.book_id, b.title, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN books b ON b.id = oi.book_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Items = []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.BookID, &it.Title, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

// PurchasedBooks lists each book the user has bought in a paid order, most recent purchase first.
func (r *OrderRepo) PurchasedBooks(ctx context.Context, userID int64) ([]models.Book, error) {
	query := `
		SELECT ` + prefixedBookColumns + `
		FROM books b
		JOIN (
			SELECT oi.book_id, MAX(o.created_at) AS bought_at
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $1 AND o.status = $2
			GROUP BY oi.book_id
		) p ON p.book_id = b.id
		ORDER BY p.bought_at DESC, b.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, string(models.OrderStatusPaid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

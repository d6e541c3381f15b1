package repository

import (
	"context"
	"database/sql"

	"github.com/mokabook/bookstore/internal/models"
)

type WishlistRepo struct {
	db *sql.DB
}

func NewWishlistRepo(db *sql.DB) *WishlistRepo {
	return &WishlistRepo{db: db}
}

// Toggle removes the book from the wishlist if present, otherwise adds it.
// It reports whether the book is in the wishlist afterwards.
func (r *WishlistRepo) Toggle(ctx context.Context, userID, bookID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE user_id = $1 AND book_id = $2`,
		userID, bookID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (user_id, book_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, book_id) DO NOTHING
	`, userID, bookID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *WishlistRepo) Exists(ctx context.Context, userID, bookID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wishlist_items WHERE user_id = $1 AND book_id = $2)`,
		userID, bookID).Scan(&exists)
	return exists, err
}

func (r *WishlistRepo) ListByUser(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	query := `
		SELECT w.id, w.user_id, w.added_at, ` + prefixedBookColumns + `
		FROM wishlist_items w
		JOIN books b ON b.id = w.book_id
		WHERE w.user_id = $1
		ORDER BY w.added_at DESC, w.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var (
			it         models.WishlistItem
			translator sql.NullString
		)
		b := &it.Book
		err := rows.Scan(
			&it.ID, &it.UserID, &it.AddedAt,
			&b.ID, &b.Title, &b.Author, &translator, &b.Publisher, &b.Introduction, &b.Price, &b.Category,
			&b.PublicationYear, &b.PageCount, &b.Stock, &b.IsFeatured, &b.IsPopular, &b.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if translator.Valid {
			b.Translator = &translator.String
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

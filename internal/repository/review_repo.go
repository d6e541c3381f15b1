package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mokabook/bookstore/internal/models"
)

type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

func (r *ReviewRepo) Create(ctx context.Context, rv *models.Review) error {
	query := `
		INSERT INTO reviews (user_id, book_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query, rv.UserID, rv.BookID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt)
}

// Update changes rating and comment of a review owned by userID.
func (r *ReviewRepo) Update(ctx context.Context, rv *models.Review) error {
	query := `
		UPDATE reviews SET rating = $3, comment = $4
		WHERE id = $1 AND user_id = $2
		RETURNING book_id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, rv.ID, rv.UserID, rv.Rating, rv.Comment).
		Scan(&rv.BookID, &rv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *ReviewRepo) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *ReviewRepo) ListByBook(ctx context.Context, bookID int64) ([]models.Review, error) {
	query := `
		SELECT r.id, r.user_id, u.username, r.book_id, b.title, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		JOIN books b ON b.id = r.book_id
		WHERE r.book_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`
	return r.list(ctx, query, bookID)
}

func (r *ReviewRepo) ListByUser(ctx context.Context, userID int64) ([]models.Review, error) {
	query := `
		SELECT r.id, r.user_id, u.username, r.book_id, b.title, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		JOIN books b ON b.id = r.book_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *ReviewRepo) list(ctx context.Context, query string, arg int64) ([]models.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.BookID, &rv.BookTitle, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

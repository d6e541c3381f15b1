package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mokabook/bookstore/internal/models"
)

const bookColumns = `id, title, author, translator, publisher, introduction, price, category,
	publication_year, page_count, stock, is_featured, is_popular, created_at`

const prefixedBookColumns = `b.id, b.title, b.author, b.translator, b.publisher, b.introduction, b.price, b.category,
	b.publication_year, b.page_count, b.stock, b.is_featured, b.is_popular, b.created_at`

type BookRepo struct {
	db *sql.DB
}

func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

func scanBook(s scanner) (models.Book, error) {
	var (
		b          models.Book
		translator sql.NullString
	)
	err := s.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&translator,
		&b.Publisher,
		&b.Introduction,
		&b.Price,
		&b.Category,
		&b.PublicationYear,
		&b.PageCount,
		&b.Stock,
		&b.IsFeatured,
		&b.IsPopular,
		&b.CreatedAt,
	)
	if err != nil {
		return b, err
	}
	if translator.Valid {
		b.Translator = &translator.String
	}
	return b, nil
}

func (r *BookRepo) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

// List applies the non-zero fields of f. Text filters are case-insensitive substring matches.
func (r *BookRepo) List(ctx context.Context, f models.BookFilter) ([]models.Book, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Query != "" {
		add("title ILIKE $%d", "%"+f.Query+"%")
	}
	if f.Author != "" {
		add("author ILIKE $%d", "%"+f.Author+"%")
	}
	if f.Translator != "" {
		add("translator ILIKE $%d", "%"+f.Translator+"%")
	}
	if f.Publisher != "" {
		add("publisher ILIKE $%d", "%"+f.Publisher+"%")
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.MinPrice > 0 {
		add("price >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("price <= $%d", f.MaxPrice)
	}

	query := "SELECT " + bookColumns + " FROM books"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	order := f.OrderBy()
	if order == "" {
		order = "created_at DESC"
	}
	query += " ORDER BY " + order + ", id"

	return r.queryBooks(ctx, query, args...)
}

func (r *BookRepo) Get(ctx context.Context, id int64) (*models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE id = $1"
	b, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Related returns books sharing the author, translator or category of b, excluding b.
func (r *BookRepo) Related(ctx context.Context, b *models.Book, limit int) ([]models.Book, error) {
	var translator any
	if b.Translator != nil {
		translator = *b.Translator
	}
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE id <> $1
		  AND (author = $2 OR (translator IS NOT NULL AND translator = $3) OR category = $4)
		ORDER BY created_at DESC, id
		LIMIT $5
	`
	return r.queryBooks(ctx, query, b.ID, b.Author, translator, string(b.Category), limit)
}

func (r *BookRepo) Featured(ctx context.Context, limit int) ([]models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE is_featured ORDER BY created_at DESC, id LIMIT $1"
	return r.queryBooks(ctx, query, limit)
}

func (r *BookRepo) Popular(ctx context.Context, limit int) ([]models.Book, error) {
	query := "SELECT " + bookColumns + " FROM books WHERE is_popular ORDER BY created_at DESC, id LIMIT $1"
	return r.queryBooks(ctx, query, limit)
}

// Create inserts b and fills in its id and created_at.
func (r *BookRepo) Create(ctx context.Context, b *models.Book) error {
	query := `
		INSERT INTO books
		(title, author, translator, publisher, introduction, price, category,
		 publication_year, page_count, stock, is_featured, is_popular)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		b.Title,
		b.Author,
		b.Translator,
		b.Publisher,
		b.Introduction,
		b.Price,
		string(b.Category),
		b.PublicationYear,
		b.PageCount,
		b.Stock,
		b.IsFeatured,
		b.IsPopular,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *BookRepo) Update(ctx context.Context, b *models.Book) error {
	query := `
		UPDATE books
		SET title = $2, author = $3, translator = $4, publisher = $5, introduction = $6,
		    price = $7, category = $8, publication_year = $9, page_count = $10,
		    stock = $11, is_featured = $12, is_popular = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.Title,
		b.Author,
		b.Translator,
		b.Publisher,
		b.Introduction,
		b.Price,
		string(b.Category),
		b.PublicationYear,
		b.PageCount,
		b.Stock,
		b.IsFeatured,
		b.IsPopular,
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *BookRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

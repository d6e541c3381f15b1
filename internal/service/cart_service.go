package service

import (
	"context"
	"fmt"

	"github.com/mokabook/bookstore/internal/models"
)

type CartStore interface {
	ListByUser(ctx context.Context, userID int64) ([]models.CartLine, error)
	AddItem(ctx context.Context, userID, bookID int64) (int, error)
	Decrease(ctx context.Context, userID, bookID int64) error
	Remove(ctx context.Context, userID, bookID int64) error
}

type BookGetter interface {
	Get(ctx context.Context, id int64) (*models.Book, error)
}

type CartView struct {
	Items []models.CartLine `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

type CartService struct {
	carts CartStore
	books BookGetter
}

func NewCartService(carts CartStore, books BookGetter) *CartService {
	return &CartService{carts: carts, books: books}
}

func (s *CartService) View(ctx context.Context, userID int64) (CartView, error) {
	lines, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return CartView{}, fmt.Errorf("load cart: %w", err)
	}
	view := CartView{Items: lines, Total: models.CartTotal(lines)}
	for _, l := range lines {
		view.Count += l.Quantity
	}
	return view, nil
}

// Add puts one more copy of the book in the cart. Books with no stock are refused;
// the quantity itself is not capped by stock.
func (s *CartService) Add(ctx context.Context, userID, bookID int64) (int, error) {
	b, err := s.books.Get(ctx, bookID)
	if err != nil {
		return 0, err
	}
	if b.Stock == 0 {
		return 0, ErrOutOfStock
	}
	return s.carts.AddItem(ctx, userID, bookID)
}

func (s *CartService) Decrease(ctx context.Context, userID, bookID int64) error {
	return s.carts.Decrease(ctx, userID, bookID)
}

func (s *CartService) Remove(ctx context.Context, userID, bookID int64) error {
	return s.carts.Remove(ctx, userID, bookID)
}

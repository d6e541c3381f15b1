package service

import (
	"context"

	"github.com/mokabook/bookstore/internal/models"
)

type OrderReader interface {
	GetForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	PurchasedBooks(ctx context.Context, userID int64) ([]models.Book, error)
}

type OrderService struct {
	orders OrderReader
}

func NewOrderService(orders OrderReader) *OrderService {
	return &OrderService{orders: orders}
}

// Receipt returns one of the user's orders. Zero or mock ids have no receipt.
func (s *OrderService) Receipt(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, ErrNotFound
	}
	return s.orders.GetForUser(ctx, orderID, userID)
}

func (s *OrderService) PurchasedBooks(ctx context.Context, userID int64) ([]models.Book, error) {
	return s.orders.PurchasedBooks(ctx, userID)
}

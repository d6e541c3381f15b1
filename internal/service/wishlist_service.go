package service

import (
	"context"

	"github.com/mokabook/bookstore/internal/models"
)

type WishlistStore interface {
	Toggle(ctx context.Context, userID, bookID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.WishlistItem, error)
}

type WishlistService struct {
	wishlist WishlistStore
	books    BookGetter
}

func NewWishlistService(wishlist WishlistStore, books BookGetter) *WishlistService {
	return &WishlistService{wishlist: wishlist, books: books}
}

func (s *WishlistService) Toggle(ctx context.Context, userID, bookID int64) (bool, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return false, err
	}
	return s.wishlist.Toggle(ctx, userID, bookID)
}

func (s *WishlistService) List(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	return s.wishlist.ListByUser(ctx, userID)
}

package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
)

type Wishlist interface {
	Toggle(ctx context.Context, userID, bookID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]models.WishlistItem, error)
}

type WishlistHandler struct {
	wishlist Wishlist
	log      zerolog.Logger
}

func NewWishlistHandler(wishlist Wishlist, log zerolog.Logger) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist, log: log}
}

func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.wishlist.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
}

func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(r, "bookID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	in, err := h.wishlist.Toggle(r.Context(), middleware.UserID(r.Context()), bookID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"book_id": bookID, "in_wishlist": in})
}

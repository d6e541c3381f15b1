package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/service"
)

type Cart interface {
	View(ctx context.Context, userID int64) (service.CartView, error)
	Add(ctx context.Context, userID, bookID int64) (int, error)
	Decrease(ctx context.Context, userID, bookID int64) error
	Remove(ctx context.Context, userID, bookID int64) error
}

type CartHandler struct {
	cart Cart
	log  zerolog.Logger
}

func NewCartHandler(cart Cart, log zerolog.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log}
}

func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.cart.View(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(r, "bookID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	qty, err := h.cart.Add(r.Context(), middleware.UserID(r.Context()), bookID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"book_id": bookID, "quantity": qty})
}

func (h *CartHandler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.cart.Decrease)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.cart.Remove)
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, bookID int64) error) {
	bookID, ok := pathID(r, "bookID")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	userID := middleware.UserID(r.Context())
	if err := fn(r.Context(), userID, bookID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.View(w, r)
}

package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/session"
)

type Orders interface {
	Receipt(ctx context.Context, userID, orderID int64) (*models.Order, error)
	PurchasedBooks(ctx context.Context, userID int64) ([]models.Book, error)
}

type OrderHandler struct {
	orders Orders
	log    zerolog.Logger
}

func NewOrderHandler(orders Orders, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Confirmation reports the order created by the session's last verified payment.
func (h *OrderHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess.LastOrderID == 0 {
		respondError(w, http.StatusNotFound, "no_recent_order", "no recent order", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": sess.LastOrderID,
		"mock":     sess.LastOrderID == models.MockOrderID,
	})
}

// Receipt handles GET /orders/receipt?id=, falling back to the session's last order.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID := session.FromContext(r.Context()).LastOrderID
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_id", "invalid order id", "")
			return
		}
		orderID = id
	}

	order, err := h.orders.Receipt(r.Context(), middleware.UserID(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) PurchasedBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.orders.PurchasedBooks(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bookListResponse{Books: books, Count: len(books)})
}

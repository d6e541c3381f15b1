package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
)

type Reviews interface {
	Create(ctx context.Context, userID, bookID int64, rating int, comment string) (*models.Review, error)
	Update(ctx context.Context, userID, reviewID int64, rating int, comment string) (*models.Review, error)
	Delete(ctx context.Context, userID, reviewID int64) error
	ListMine(ctx context.Context, userID int64) ([]models.Review, error)
}

type ReviewHandler struct {
	reviews Reviews
	log     zerolog.Logger
}

func NewReviewHandler(reviews Reviews, log zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, log: log}
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create handles POST /books/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	rv, err := h.reviews.Create(r.Context(), middleware.UserID(r.Context()), bookID, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid review id", "")
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	rv, err := h.reviews.Update(r.Context(), middleware.UserID(r.Context()), id, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid review id", "")
		return
	}
	if err := h.reviews.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListMine(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews, "count": len(reviews)})
}

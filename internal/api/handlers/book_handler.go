package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/service"
)

type Catalog interface {
	List(ctx context.Context, f models.BookFilter) ([]models.Book, error)
	Home(ctx context.Context) (service.Home, error)
	Detail(ctx context.Context, id, userID int64) (service.BookDetail, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error
}

type BookHandler struct {
	catalog Catalog
	log     zerolog.Logger
}

func NewBookHandler(catalog Catalog, log zerolog.Logger) *BookHandler {
	return &BookHandler{catalog: catalog, log: log}
}

type bookListResponse struct {
	Books []models.Book `json:"books"`
	Count int           `json:"count"`
}

// List handles GET /books?q=&author=&translator=&publisher=&category=&min_price=&max_price=&sort=
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.BookFilter{
		Query:      q.Get("q"),
		Author:     q.Get("author"),
		Translator: q.Get("translator"),
		Publisher:  q.Get("publisher"),
		Category:   models.Category(q.Get("category")),
		Sort:       q.Get("sort"),
	}
	var err error
	if f.MinPrice, err = parsePrice(q.Get("min_price")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", "invalid filter", "min_price must be an integer")
		return
	}
	if f.MaxPrice, err = parsePrice(q.Get("max_price")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", "invalid filter", "max_price must be an integer")
		return
	}

	books, err := h.catalog.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bookListResponse{Books: books, Count: len(books)})
}

func parsePrice(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (h *BookHandler) Home(w http.ResponseWriter, r *http.Request) {
	home, err := h.catalog.Home(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (h *BookHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	detail, err := h.catalog.Detail(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Create handles POST /admin/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var b models.Book
	if err := decodeBody(r, &b); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	b.ID = 0
	if err := h.catalog.Create(r.Context(), &b); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Update handles PUT /admin/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	var b models.Book
	if err := decodeBody(r, &b); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	b.ID = id
	if err := h.catalog.Update(r.Context(), &b); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /admin/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_id", "invalid book id", "")
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

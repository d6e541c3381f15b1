package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// writeServiceError maps service and gateway errors onto the HTTP error envelope.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var gwErr *gateway.Error
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty", "")
	case errors.Is(err, service.ErrEmptyCartAtVerification):
		respondError(w, http.StatusConflict, "empty_cart_at_verification", "payment succeeded but the cart is empty", "")
	case errors.Is(err, service.ErrAuthorityMismatch):
		respondError(w, http.StatusBadRequest, "invalid_or_duplicate_payment", "invalid or duplicate payment", "")
	case errors.Is(err, service.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_payment_status", "invalid payment status", "")
	case errors.As(err, &gwErr):
		respondError(w, http.StatusPaymentRequired, "payment_failed", "payment failed", gwErr.Message)
	case errors.Is(err, service.ErrGatewayRejected):
		respondError(w, http.StatusPaymentRequired, "payment_failed", "payment failed", "")
	case errors.Is(err, service.ErrGatewayUnreachable):
		respondError(w, http.StatusBadGateway, "gateway_unreachable", "payment gateway unreachable", "")
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "not found", "")
	case errors.Is(err, service.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", "book is out of stock", "")
	case errors.Is(err, service.ErrInvalidFilter):
		respondError(w, http.StatusBadRequest, "invalid_filter", "invalid filter", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", "invalid input", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out", "")
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", "")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

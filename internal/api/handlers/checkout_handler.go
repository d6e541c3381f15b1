package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/service"
	"github.com/mokabook/bookstore/internal/session"
)

const (
	confirmationPath = "/orders/confirmation"
	cancelledPath    = "/checkout/cancelled"
)

type Checkout interface {
	InitiatePayment(ctx context.Context, userID int64, sess *session.Session) (string, error)
	VerifyPayment(ctx context.Context, userID int64, sess *session.Session, cb service.Callback) (service.Outcome, error)
}

type CheckoutHandler struct {
	checkout Checkout
	sessions session.Store
	log      zerolog.Logger
}

func NewCheckoutHandler(checkout Checkout, sessions session.Store, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, sessions: sessions, log: log}
}

// Pay handles POST /checkout/pay and redirects to the gateway payment page.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	url, err := h.checkout.InitiatePayment(r.Context(), middleware.UserID(r.Context()), sess)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// Verify handles the gateway callback GET /checkout/verify?Authority=&Status=
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := service.Callback{Authority: q.Get("Authority"), Status: q.Get("Status")}

	out, err := h.checkout.VerifyPayment(r.Context(), middleware.UserID(r.Context()), session.FromContext(r.Context()), cb)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	switch out.State {
	case models.CheckoutCancelled:
		http.Redirect(w, r, cancelledPath, http.StatusSeeOther)
	case models.CheckoutVerified:
		http.Redirect(w, r, confirmationPath, http.StatusSeeOther)
	default:
		h.log.Error().Str("state", out.State.String()).Msg("unexpected checkout outcome")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", "")
	}
}

func (h *CheckoutHandler) Cancelled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  models.CheckoutCancelled,
		"message": "payment was cancelled",
	})
}

type mockPaymentRequest struct {
	Enabled *bool `json:"enabled"`
}

// MockPayment handles POST /debug/mock-payment. Only routed when DEBUG is on.
func (h *CheckoutHandler) MockPayment(w http.ResponseWriter, r *http.Request) {
	var req mockPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body", err.Error())
		return
	}
	enabled := req.Enabled == nil || *req.Enabled

	sess := session.FromContext(r.Context())
	sess.MockPayment = enabled
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"mock_payment": enabled})
}

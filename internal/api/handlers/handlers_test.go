package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/service"
	"github.com/mokabook/bookstore/internal/session"
)

type fakeCheckout struct {
	url       string
	initErr   error
	outcome   service.Outcome
	verifyErr error
	lastCB    service.Callback
}

func (f *fakeCheckout) InitiatePayment(context.Context, int64, *session.Session) (string, error) {
	return f.url, f.initErr
}

func (f *fakeCheckout) VerifyPayment(_ context.Context, _ int64, _ *session.Session, cb service.Callback) (service.Outcome, error) {
	f.lastCB = cb
	return f.outcome, f.verifyErr
}

func withUserSession(r *http.Request, sess *session.Session) *http.Request {
	ctx := middleware.WithUser(r.Context(), 7, "")
	ctx = session.WithSession(ctx, sess)
	return r.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestCheckoutPay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		details  string
		location string
	}{
		{name: "redirects to gateway", status: http.StatusSeeOther, location: "https://pay.example/StartPay/AUTH1"},
		{name: "empty cart", err: service.ErrEmptyCart, status: http.StatusBadRequest, code: "empty_cart"},
		{name: "unreachable", err: fmt.Errorf("request payment: %w", gateway.ErrUnreachable), status: http.StatusBadGateway, code: "gateway_unreachable"},
		{
			name:    "rejected",
			err:     fmt.Errorf("request payment: %w", &gateway.Error{Code: -9, Message: "merchant not valid"}),
			status:  http.StatusPaymentRequired,
			code:    "payment_failed",
			details: "merchant not valid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCheckoutHandler(&fakeCheckout{url: "https://pay.example/StartPay/AUTH1", initErr: tt.err}, session.NewMemoryStore(time.Hour), zerolog.Nop())
			req := withUserSession(httptest.NewRequest(http.MethodPost, "/checkout/pay", nil), session.New())
			rec := httptest.NewRecorder()

			h.Pay(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
				return
			}
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.details, body.Details)
		})
	}
}

func TestCheckoutVerify(t *testing.T) {
	tests := []struct {
		name     string
		outcome  service.Outcome
		err      error
		status   int
		code     string
		location string
	}{
		{name: "verified", outcome: service.Outcome{State: models.CheckoutVerified, OrderID: 42}, status: http.StatusSeeOther, location: "/orders/confirmation"},
		{name: "cancelled", outcome: service.Outcome{State: models.CheckoutCancelled}, status: http.StatusSeeOther, location: "/checkout/cancelled"},
		{name: "mismatch", outcome: service.Outcome{State: models.CheckoutRejected}, err: service.ErrAuthorityMismatch, status: http.StatusBadRequest, code: "invalid_or_duplicate_payment"},
		{name: "invalid status", outcome: service.Outcome{State: models.CheckoutRejected}, err: service.ErrInvalidStatus, status: http.StatusBadRequest, code: "invalid_payment_status"},
		{name: "empty at verification", outcome: service.Outcome{State: models.CheckoutFailed}, err: service.ErrEmptyCartAtVerification, status: http.StatusConflict, code: "empty_cart_at_verification"},
		{name: "gateway failure", outcome: service.Outcome{State: models.CheckoutFailed}, err: fmt.Errorf("verify payment: %w", gateway.ErrUnreachable), status: http.StatusBadGateway, code: "gateway_unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCheckout{outcome: tt.outcome, verifyErr: tt.err}
			h := NewCheckoutHandler(fc, session.NewMemoryStore(time.Hour), zerolog.Nop())
			req := withUserSession(httptest.NewRequest(http.MethodGet, "/checkout/verify?Authority=AUTH1&Status=OK", nil), session.New())
			rec := httptest.NewRecorder()

			h.Verify(rec, req)

			assert.Equal(t, service.Callback{Authority: "AUTH1", Status: "OK"}, fc.lastCB)
			assert.Equal(t, tt.status, rec.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, rec.Header().Get("Location"))
				return
			}
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestMockPaymentSetsSessionFlag(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	h := NewCheckoutHandler(&fakeCheckout{}, store, zerolog.Nop())
	sess := session.New()

	rec := httptest.NewRecorder()
	h.MockPayment(rec, withUserSession(httptest.NewRequest(http.MethodPost, "/debug/mock-payment", nil), sess))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.MockPayment)

	rec = httptest.NewRecorder()
	h.MockPayment(rec, withUserSession(httptest.NewRequest(http.MethodPost, "/debug/mock-payment", strings.NewReader(`{"enabled":false}`)), sess))
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err = store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, stored.MockPayment)
}

type fakeCatalog struct {
	lastFilter models.BookFilter
	listErr    error
}

func (c *fakeCatalog) List(_ context.Context, f models.BookFilter) ([]models.Book, error) {
	c.lastFilter = f
	return []models.Book{{ID: 1}}, c.listErr
}
func (c *fakeCatalog) Home(context.Context) (service.Home, error) { return service.Home{}, nil }
func (c *fakeCatalog) Detail(_ context.Context, id, _ int64) (service.BookDetail, error) {
	if id != 1 {
		return service.BookDetail{}, service.ErrNotFound
	}
	return service.BookDetail{Book: models.Book{ID: 1}}, nil
}
func (c *fakeCatalog) Create(_ context.Context, b *models.Book) error {
	b.ID = 5
	return nil
}
func (c *fakeCatalog) Update(context.Context, *models.Book) error { return nil }
func (c *fakeCatalog) Delete(context.Context, int64) error        { return nil }

func TestBookList(t *testing.T) {
	fc := &fakeCatalog{}
	h := NewBookHandler(fc, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/books?q=go&category=science&min_price=100&sort=-price", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BookFilter{Query: "go", Category: models.CategoryScience, MinPrice: 100, Sort: "-price"}, fc.lastFilter)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/books?max_price=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_filter", decodeError(t, rec).Code)

	fc.listErr = fmt.Errorf("%w: unknown sort", service.ErrInvalidFilter)
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/books?sort=stock", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookDetailNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/books/{id}", NewBookHandler(&fakeCatalog{}, zerolog.Nop()).Detail)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeCart struct{ addErr error }

func (c fakeCart) View(context.Context, int64) (service.CartView, error) {
	return service.CartView{Total: 1000, Count: 1}, nil
}
func (c fakeCart) Add(context.Context, int64, int64) (int, error) { return 1, c.addErr }
func (c fakeCart) Decrease(context.Context, int64, int64) error  { return nil }
func (c fakeCart) Remove(context.Context, int64, int64) error    { return service.ErrNotFound }

func TestCartHandlers(t *testing.T) {
	r := chi.NewRouter()
	h := NewCartHandler(fakeCart{addErr: service.ErrOutOfStock}, zerolog.Nop())
	r.Post("/cart/items/{bookID}", h.Add)
	r.Post("/cart/items/{bookID}/decrease", h.Decrease)
	r.Delete("/cart/items/{bookID}", h.Remove)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items/3", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "out_of_stock", decodeError(t, rec).Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/items/3/decrease", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1000`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart/items/3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeOrders struct{ gotID int64 }

func (o *fakeOrders) Receipt(_ context.Context, _, orderID int64) (*models.Order, error) {
	o.gotID = orderID
	return &models.Order{ID: orderID}, nil
}
func (o *fakeOrders) PurchasedBooks(context.Context, int64) ([]models.Book, error) {
	return []models.Book{}, nil
}

func TestOrderReceiptFallsBackToLastOrder(t *testing.T) {
	fo := &fakeOrders{}
	h := NewOrderHandler(fo, zerolog.Nop())
	sess := session.New()
	sess.LastOrderID = 42

	rec := httptest.NewRecorder()
	h.Receipt(rec, withUserSession(httptest.NewRequest(http.MethodGet, "/orders/receipt", nil), sess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), fo.gotID)

	rec = httptest.NewRecorder()
	h.Receipt(rec, withUserSession(httptest.NewRequest(http.MethodGet, "/orders/receipt?id=9", nil), sess))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), fo.gotID)
}

func TestOrderConfirmation(t *testing.T) {
	h := NewOrderHandler(&fakeOrders{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Confirmation(rec, withUserSession(httptest.NewRequest(http.MethodGet, "/orders/confirmation", nil), session.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sess := session.New()
	sess.LastOrderID = models.MockOrderID
	rec = httptest.NewRecorder()
	h.Confirmation(rec, withUserSession(httptest.NewRequest(http.MethodGet, "/orders/confirmation", nil), sess))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"order_id":-1,"mock":true}`, rec.Body.String())
}

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mokabook/bookstore/internal/events"
	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/repository"
	"github.com/mokabook/bookstore/internal/session"
)

const testUserID int64 = 7

type fakeGateway struct {
	authority  string
	requestErr error
	verifyErr  error
	requests   []gateway.PaymentRequest
	verifies   []gateway.VerifyRequest
}

func (g *fakeGateway) RequestPayment(_ context.Context, req gateway.PaymentRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.requestErr != nil {
		return "", g.requestErr
	}
	return g.authority, nil
}

func (g *fakeGateway) VerifyPayment(_ context.Context, req gateway.VerifyRequest) (*gateway.Verification, error) {
	g.verifies = append(g.verifies, req)
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &gateway.Verification{Code: gateway.CodeSuccess, RefID: 201}, nil
}

func (g *fakeGateway) StartPayURL(authority string) string {
	return "https://pay.example/StartPay/" + authority
}

type fakeUsers struct {
	user *models.User
}

func (u fakeUsers) GetByID(context.Context, int64) (*models.User, error) {
	if u.user == nil {
		return nil, repository.ErrNotFound
	}
	return u.user, nil
}

type recordingInvalidator struct{ ids []int64 }

func (r *recordingInvalidator) Invalidate(ids ...int64) { r.ids = append(r.ids, ids...) }

type recordingEvents struct{ paid []events.OrderPaid }

func (r *recordingEvents) OrderPaid(evt events.OrderPaid) { r.paid = append(r.paid, evt) }

type recordingMetrics struct {
	outcomes []string
	paid     int64
}

func (m *recordingMetrics) RecordCheckout(step, state string) {
	m.outcomes = append(m.outcomes, step+":"+state)
}
func (m *recordingMetrics) RecordPaid(amount int64) { m.paid += amount }

type checkoutFixture struct {
	svc      *CheckoutService
	mock     sqlmock.Sqlmock
	gw       *fakeGateway
	sessions *session.MemoryStore
	books    *recordingInvalidator
	events   *recordingEvents
	metrics  *recordingMetrics
}

func newCheckoutFixture(t *testing.T, debug bool) *checkoutFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	phone := "09120000000"
	f := &checkoutFixture{
		mock:     mock,
		gw:       &fakeGateway{authority: "AUTH1"},
		sessions: session.NewMemoryStore(time.Hour),
		books:    &recordingInvalidator{},
		events:   &recordingEvents{},
		metrics:  &recordingMetrics{},
	}
	f.svc = NewCheckoutService(db, CheckoutDeps{
		Carts:    repository.NewCartRepo(db),
		Orders:   repository.NewOrderRepo(db),
		Users:    fakeUsers{user: &models.User{ID: testUserID, Email: "sara@example.com", PhoneNumber: &phone}},
		Gateway:  f.gw,
		Sessions: f.sessions,
		Books:    f.books,
		Events:   f.events,
		Metrics:  f.metrics,
	}, debug, zerolog.Nop())
	return f
}

var cartCols = []string{"id", "user_id", "book_id", "quantity", "title", "price", "stock"}

// two copies of book 1 at 10000 and one of book 2 at 5000
func cartRows() *sqlmock.Rows {
	return sqlmock.NewRows(cartCols).
		AddRow(1, testUserID, 1, 2, "Book One", 10000, 5).
		AddRow(2, testUserID, 2, 1, "Book Two", 5000, 0)
}

func pendingSession(authority string) *session.Session {
	s := session.New()
	s.SetPending(authority, testUserID)
	return s
}

func TestInitiatePayment_EmptyCart(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(cartCols))

	sess := session.New()
	_, err := f.svc.InitiatePayment(context.Background(), testUserID, sess)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, f.gw.requests)
	assert.False(t, sess.HasPending())
}

func TestInitiatePayment_StoresPendingAuthority(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(testUserID).
		WillReturnRows(cartRows())

	sess := session.New()
	url, err := f.svc.InitiatePayment(context.Background(), testUserID, sess)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/StartPay/AUTH1", url)
	require.Len(t, f.gw.requests, 1)
	assert.Equal(t, int64(25000), f.gw.requests[0].Amount)
	assert.Equal(t, "sara@example.com", f.gw.requests[0].Metadata.Email)
	assert.Equal(t, "09120000000", f.gw.requests[0].Metadata.Mobile)

	stored, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "AUTH1", stored.PendingAuthority)
	assert.Equal(t, testUserID, stored.PendingUserID)
	assert.Equal(t, []string{"request:PENDING"}, f.metrics.outcomes)
}

func TestInitiatePayment_OmitsMobileWithoutPhone(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.svc.Users = fakeUsers{user: &models.User{ID: testUserID, Email: "a@example.com"}}
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WillReturnRows(cartRows())

	_, err := f.svc.InitiatePayment(context.Background(), testUserID, session.New())
	require.NoError(t, err)
	assert.Empty(t, f.gw.requests[0].Metadata.Mobile)
}

func TestInitiatePayment_GatewayRejectedKeepsSession(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.gw.requestErr = &gateway.Error{Code: -9, Message: "merchant not valid"}
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WillReturnRows(cartRows())

	sess := pendingSession("OLD")
	_, err := f.svc.InitiatePayment(context.Background(), testUserID, sess)

	assert.ErrorIs(t, err, ErrGatewayRejected)
	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "merchant not valid", gwErr.Message)
	assert.Equal(t, "OLD", sess.PendingAuthority)
	_, err = f.sessions.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestInitiatePayment_GatewayUnreachable(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.gw.requestErr = gateway.ErrUnreachable
	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WillReturnRows(cartRows())

	_, err := f.svc.InitiatePayment(context.Background(), testUserID, session.New())
	assert.ErrorIs(t, err, ErrGatewayUnreachable)
	assert.Equal(t, []string{"request:FAILED"}, f.metrics.outcomes)
}

func expectSuccessfulSettlement(mock sqlmock.Sqlmock) {
	expectSettlement(mock, nil)
}

func expectSettlement(mock sqlmock.Sqlmock, commitErr error) {
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testUserID).
		WillReturnRows(cartRows())
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(testUserID, int64(25000), "paid", "AUTH1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(42), int64(1), 2, int64(10000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(42), int64(2), 1, int64(5000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(stock - $2, 0)")).
		WithArgs(int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("GREATEST(stock - $2, 0)")).
		WithArgs(int64(2), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	if commitErr != nil {
		mock.ExpectCommit().WillReturnError(commitErr)
		return
	}
	mock.ExpectCommit()
}

func TestVerifyPayment_Success(t *testing.T) {
	f := newCheckoutFixture(t, false)
	expectSuccessfulSettlement(f.mock)

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})
	require.NoError(t, err)

	assert.Equal(t, models.CheckoutVerified, out.State)
	assert.Equal(t, int64(42), out.OrderID)
	assert.Equal(t, int64(201), out.RefID)

	require.Len(t, f.gw.verifies, 1)
	assert.Equal(t, gateway.VerifyRequest{Amount: 25000, Authority: "AUTH1"}, f.gw.verifies[0])

	assert.False(t, sess.HasPending())
	assert.Zero(t, sess.PendingUserID)
	assert.Equal(t, int64(42), sess.LastOrderID)
	stored, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.LastOrderID)

	assert.ElementsMatch(t, []int64{1, 2}, f.books.ids)
	require.Len(t, f.events.paid, 1)
	assert.Equal(t, int64(25000), f.events.paid[0].TotalPrice)
	assert.Len(t, f.events.paid[0].Items, 2)
	assert.Equal(t, int64(25000), f.metrics.paid)
	assert.Equal(t, []string{"verify:VERIFIED"}, f.metrics.outcomes)
}

func TestVerifyPayment_AuthorityMismatch(t *testing.T) {
	f := newCheckoutFixture(t, false)

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH2", Status: "OK"})

	assert.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Equal(t, models.CheckoutRejected, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Empty(t, f.gw.verifies)
}

func TestVerifyPayment_OtherUserCannotSettle(t *testing.T) {
	f := newCheckoutFixture(t, false)

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID+1, sess, Callback{Authority: "AUTH1", Status: "OK"})

	assert.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Equal(t, models.CheckoutRejected, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Equal(t, testUserID, sess.PendingUserID)
	assert.Empty(t, f.gw.verifies)
}

func TestVerifyPayment_NoPendingAuthority(t *testing.T) {
	f := newCheckoutFixture(t, false)

	out, err := f.svc.VerifyPayment(context.Background(), testUserID, session.New(), Callback{Authority: "", Status: "OK"})
	assert.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Equal(t, models.CheckoutRejected, out.State)
}

func TestVerifyPayment_Cancelled(t *testing.T) {
	f := newCheckoutFixture(t, false)

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "NOK"})
	require.NoError(t, err)

	assert.Equal(t, models.CheckoutCancelled, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Empty(t, f.gw.verifies)
}

func TestVerifyPayment_InvalidStatus(t *testing.T) {
	f := newCheckoutFixture(t, false)

	sess := pendingSession("AUTH1")
	sess.MockPayment = true
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "MAYBE"})

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, models.CheckoutRejected, out.State)
	assert.Zero(t, sess.LastOrderID)
}

func TestVerifyPayment_DebugMockBypass(t *testing.T) {
	f := newCheckoutFixture(t, true)

	sess := pendingSession("AUTH1")
	sess.MockPayment = true
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})
	require.NoError(t, err)

	assert.Equal(t, models.CheckoutVerified, out.State)
	assert.Equal(t, models.MockOrderID, sess.LastOrderID)
	assert.Empty(t, f.gw.verifies)
	assert.Empty(t, f.events.paid)
}

func TestVerifyPayment_GatewayRejectedRollsBack(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.gw.verifyErr = &gateway.Error{Code: -51, Message: "payment failed"}

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testUserID).
		WillReturnRows(cartRows())
	f.mock.ExpectRollback()

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})

	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Equal(t, models.CheckoutFailed, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Zero(t, sess.LastOrderID)
	assert.Empty(t, f.events.paid)
	assert.Empty(t, f.books.ids)
}

func TestVerifyPayment_GatewayUnreachable(t *testing.T) {
	f := newCheckoutFixture(t, false)
	f.gw.verifyErr = gateway.ErrUnreachable

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(cartRows())
	f.mock.ExpectRollback()

	out, err := f.svc.VerifyPayment(context.Background(), testUserID, pendingSession("AUTH1"), Callback{Authority: "AUTH1", Status: "OK"})
	assert.ErrorIs(t, err, ErrGatewayUnreachable)
	assert.Equal(t, models.CheckoutFailed, out.State)
}

func TestVerifyPayment_EmptyCartAtVerification(t *testing.T) {
	f := newCheckoutFixture(t, false)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(cartCols))
	f.mock.ExpectRollback()

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})

	assert.ErrorIs(t, err, ErrEmptyCartAtVerification)
	assert.Equal(t, models.CheckoutFailed, out.State)
	assert.Empty(t, f.gw.verifies)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
}

func TestVerifyPayment_WriteFailureRollsBackEverything(t *testing.T) {
	f := newCheckoutFixture(t, false)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(cartRows())
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, time.Now()))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	f.mock.ExpectExec(regexp.QuoteMeta("GREATEST(stock - $2, 0)")).
		WillReturnError(sql.ErrConnDone)
	f.mock.ExpectRollback()

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, models.CheckoutFailed, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Zero(t, sess.LastOrderID)
	assert.Empty(t, f.events.paid)
}

func TestVerifyPayment_DuplicateAuthority(t *testing.T) {
	f := newCheckoutFixture(t, false)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(cartRows())
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_authority_key"})
	f.mock.ExpectRollback()

	out, err := f.svc.VerifyPayment(context.Background(), testUserID, pendingSession("AUTH1"), Callback{Authority: "AUTH1", Status: "OK"})
	assert.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Equal(t, models.CheckoutRejected, out.State)
}

func TestVerifyPayment_ReplayAfterSuccessIsRejected(t *testing.T) {
	f := newCheckoutFixture(t, false)
	expectSuccessfulSettlement(f.mock)

	sess := pendingSession("AUTH1")
	cb := Callback{Authority: "AUTH1", Status: "OK"}
	_, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, cb)
	require.NoError(t, err)

	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, cb)
	assert.ErrorIs(t, err, ErrAuthorityMismatch)
	assert.Equal(t, models.CheckoutRejected, out.State)
	assert.Len(t, f.gw.verifies, 1)
}

func TestVerifyPayment_VerifiesRecomputedTotal(t *testing.T) {
	f := newCheckoutFixture(t, false)
	ctx := context.Background()

	f.mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items c")).
		WithArgs(testUserID).
		WillReturnRows(cartRows())
	sess := session.New()
	_, err := f.svc.InitiatePayment(ctx, testUserID, sess)
	require.NoError(t, err)
	require.Equal(t, int64(25000), f.gw.requests[0].Amount)

	// by the callback the cart holds one copy of book 1, repriced to 12000
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(cartCols).AddRow(1, testUserID, 1, 1, "Book One", 12000, 5))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(testUserID, int64(12000), "paid", "AUTH1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(43, time.Now()))
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(int64(43), int64(1), 1, int64(12000)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	f.mock.ExpectExec(regexp.QuoteMeta("GREATEST(stock - $2, 0)")).
		WithArgs(int64(1), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE user_id = $1")).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	out, err := f.svc.VerifyPayment(ctx, testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})
	require.NoError(t, err)

	assert.Equal(t, int64(43), out.OrderID)
	require.Len(t, f.gw.verifies, 1)
	assert.Equal(t, int64(12000), f.gw.verifies[0].Amount)
	assert.Equal(t, int64(12000), f.events.paid[0].TotalPrice)
}

func TestVerifyPayment_CommitFailureAfterCaptureIsLogged(t *testing.T) {
	f := newCheckoutFixture(t, false)
	var logs bytes.Buffer
	f.svc.log = zerolog.New(&logs)
	expectSettlement(f.mock, sql.ErrConnDone)

	sess := pendingSession("AUTH1")
	out, err := f.svc.VerifyPayment(context.Background(), testUserID, sess, Callback{Authority: "AUTH1", Status: "OK"})

	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, models.CheckoutFailed, out.State)
	assert.Equal(t, "AUTH1", sess.PendingAuthority)
	assert.Empty(t, f.events.paid)

	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), "manual reconciliation required")
	assert.Contains(t, logs.String(), `"authority":"AUTH1"`)
	assert.Contains(t, logs.String(), `"ref_id":201`)
}

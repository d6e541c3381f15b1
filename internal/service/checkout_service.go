package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/events"
	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/models"
	"github.com/mokabook/bookstore/internal/repository"
	"github.com/mokabook/bookstore/internal/session"
)

// Repos and collaborators required by the checkout flow (interfaces to allow mocking).
type CheckoutCarts interface {
	ListByUser(ctx context.Context, userID int64) ([]models.CartLine, error)
	LockForCheckout(ctx context.Context, tx *sql.Tx, userID int64) ([]models.CartLine, error)
	ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type OrderWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, o *models.Order) error
	DecrementStockTx(ctx context.Context, tx *sql.Tx, bookID int64, qty int) error
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type PaymentGateway interface {
	RequestPayment(ctx context.Context, req gateway.PaymentRequest) (string, error)
	VerifyPayment(ctx context.Context, req gateway.VerifyRequest) (*gateway.Verification, error)
	StartPayURL(authority string) string
}

type BookInvalidator interface {
	Invalidate(ids ...int64)
}

type OrderEvents interface {
	OrderPaid(evt events.OrderPaid)
}

type CheckoutMetrics interface {
	RecordCheckout(step, state string)
	RecordPaid(amount int64)
}

const (
	stepRequest = "request"
	stepVerify  = "verify"
)

// Callback is what the gateway sends back on redirect.
type Callback struct {
	Authority string
	Status    string
}

type Outcome struct {
	State   models.CheckoutState
	OrderID int64
	RefID   int64
}

type CheckoutDeps struct {
	Carts    CheckoutCarts
	Orders   OrderWriter
	Users    UserReader
	Gateway  PaymentGateway
	Sessions session.Store
	Books    BookInvalidator
	Events   OrderEvents
	Metrics  CheckoutMetrics
}

type CheckoutService struct {
	db *sql.DB // verification transaction
	CheckoutDeps
	debug bool
	log   zerolog.Logger
}

func NewCheckoutService(db *sql.DB, deps CheckoutDeps, debug bool, log zerolog.Logger) *CheckoutService {
	if deps.Books == nil {
		deps.Books = nopInvalidator{}
	}
	if deps.Events == nil {
		deps.Events = nopEvents{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &CheckoutService{
		db:           db,
		CheckoutDeps: deps,
		debug:        debug,
		log:          log.With().Str("component", "checkout").Logger(),
	}
}

// InitiatePayment registers the user's cart total with the gateway, stores the
// returned authority as the session's only pending one and returns the URL of
// the hosted payment page.
func (s *CheckoutService) InitiatePayment(ctx context.Context, userID int64, sess *session.Session) (string, error) {
	lines, err := s.Carts.ListByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load cart: %w", err)
	}
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	meta := gateway.Metadata{Email: user.Email}
	if user.PhoneNumber != nil && *user.PhoneNumber != "" {
		meta.Mobile = *user.PhoneNumber
	}

	total := models.CartTotal(lines)
	authority, err := s.Gateway.RequestPayment(ctx, gateway.PaymentRequest{Amount: total, Metadata: meta})
	if err != nil {
		s.Metrics.RecordCheckout(stepRequest, models.CheckoutFailed.String())
		s.log.Error().Err(err).Int64("user_id", userID).Int64("amount", total).Msg("payment request failed")
		return "", fmt.Errorf("request payment: %w", err)
	}

	sess.SetPending(authority, userID)
	sess.UpdatedAt = time.Now().UTC()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	s.Metrics.RecordCheckout(stepRequest, models.CheckoutPending.String())
	s.log.Info().Int64("user_id", userID).Int64("amount", total).Str("authority", authority).Msg("payment requested")
	return s.Gateway.StartPayURL(authority), nil
}

// VerifyPayment reconciles a gateway callback with the session's pending
// authority. Only a Verified outcome changes orders, stock or the cart, and
// the session is touched only after the transaction has committed.
func (s *CheckoutService) VerifyPayment(ctx context.Context, userID int64, sess *session.Session, cb Callback) (Outcome, error) {
	if !sess.PendingFor(cb.Authority, userID) {
		s.log.Warn().Int64("user_id", userID).Str("authority", cb.Authority).Msg("callback authority does not match pending payment")
		return s.finish(Outcome{State: models.CheckoutRejected}, ErrAuthorityMismatch)
	}

	if cb.Status == models.CallbackStatusNOK {
		s.log.Info().Int64("user_id", userID).Str("authority", cb.Authority).Msg("payment cancelled by user")
		return s.finish(Outcome{State: models.CheckoutCancelled}, nil)
	}

	if s.debug && sess.MockPayment {
		sess.LastOrderID = models.MockOrderID
		s.saveSession(ctx, sess)
		s.log.Warn().Int64("user_id", userID).Msg("mock payment accepted")
		return s.finish(Outcome{State: models.CheckoutVerified, OrderID: models.MockOrderID}, nil)
	}

	if cb.Status != models.CallbackStatusOK {
		s.log.Warn().Int64("user_id", userID).Str("status", cb.Status).Msg("invalid payment status")
		return s.finish(Outcome{State: models.CheckoutRejected}, ErrInvalidStatus)
	}

	order, ver, err := s.settle(ctx, userID, cb.Authority)
	if err != nil {
		state := models.CheckoutFailed
		if errors.Is(err, ErrAuthorityMismatch) {
			state = models.CheckoutRejected
		}
		s.log.Error().Err(err).Int64("user_id", userID).Str("authority", cb.Authority).Msg("payment verification failed")
		return s.finish(Outcome{State: state}, err)
	}

	sess.ClearPending()
	sess.LastOrderID = order.ID
	s.saveSession(ctx, sess)

	bookIDs := make([]int64, 0, len(order.Items))
	items := make([]events.OrderPaidItem, 0, len(order.Items))
	for _, it := range order.Items {
		bookIDs = append(bookIDs, it.BookID)
		items = append(items, events.OrderPaidItem{BookID: it.BookID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	s.Books.Invalidate(bookIDs...)
	s.Events.OrderPaid(events.OrderPaid{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      items,
		PaidAt:     order.CreatedAt,
	})
	s.Metrics.RecordPaid(order.TotalPrice)

	s.log.Info().Int64("user_id", userID).Int64("order_id", order.ID).Int64("ref_id", ver.RefID).
		Int64("amount", order.TotalPrice).Msg("payment verified")
	return s.finish(Outcome{State: models.CheckoutVerified, OrderID: order.ID, RefID: ver.RefID}, nil)
}

// settle runs the verification transaction: lock the cart, verify the
// recomputed total with the gateway, then write the order, take stock and
// clear the cart.
func (s *CheckoutService) settle(ctx context.Context, userID int64, authority string) (*models.Order, *gateway.Verification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lines, err := s.Carts.LockForCheckout(ctx, tx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyCartAtVerification
	}

	order := models.NewPaidOrder(userID, authority, lines)
	ver, err := s.Gateway.VerifyPayment(ctx, gateway.VerifyRequest{Amount: order.TotalPrice, Authority: authority})
	if err != nil {
		return nil, nil, fmt.Errorf("verify payment: %w", err)
	}

	// From here on the gateway has captured the payment; a failure leaves it
	// without an order and a retry gets code 101, so it must be reconciled by hand.
	unrecorded := func(err error) error {
		s.log.Error().Err(err).Int64("user_id", userID).Str("authority", authority).
			Int64("ref_id", ver.RefID).Int64("amount", order.TotalPrice).
			Msg("payment captured but order not recorded, manual reconciliation required")
		return err
	}

	if err := s.Orders.CreateTx(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateAuthority) {
			return nil, nil, fmt.Errorf("%w: %v", ErrAuthorityMismatch, err)
		}
		return nil, nil, unrecorded(fmt.Errorf("create order: %w", err))
	}
	for _, l := range lines {
		if err := s.Orders.DecrementStockTx(ctx, tx, l.BookID, l.Quantity); err != nil {
			return nil, nil, unrecorded(fmt.Errorf("decrement stock of book %d: %w", l.BookID, err))
		}
	}
	if err := s.Carts.ClearTx(ctx, tx, userID); err != nil {
		return nil, nil, unrecorded(fmt.Errorf("clear cart: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, unrecorded(fmt.Errorf("tx commit: %w", err))
	}
	committed = true
	return order, ver, nil
}

// saveSession stores the session after the outcome is decided; errors are only logged.
func (s *CheckoutService) saveSession(ctx context.Context, sess *session.Session) {
	sess.UpdatedAt = time.Now().UTC()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("save session")
	}
}

func (s *CheckoutService) finish(out Outcome, err error) (Outcome, error) {
	s.Metrics.RecordCheckout(stepVerify, out.State.String())
	return out, err
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(...int64) {}

type nopEvents struct{}

func (nopEvents) OrderPaid(events.OrderPaid) {}

type nopMetrics struct{}

func (nopMetrics) RecordCheckout(string, string) {}
func (nopMetrics) RecordPaid(int64)              {}

// Package session holds per-browser checkout state: the single pending
// gateway authority, the last order id shown on the receipt page and the
// debug payment bypass flag.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID               string    `json:"id"`
	PendingAuthority string    `json:"pending_authority,omitempty"`
	PendingUserID    int64     `json:"pending_user_id,omitempty"`
	LastOrderID      int64     `json:"last_order_id,omitempty"`
	MockPayment      bool      `json:"mock_payment,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func New() *Session {
	return &Session{ID: uuid.NewString(), UpdatedAt: time.Now().UTC()}
}

// HasPending reports whether a payment request is awaiting verification.
func (s *Session) HasPending() bool {
	return s.PendingAuthority != ""
}

// PendingFor reports whether authority is the pending one and was requested by userID.
func (s *Session) PendingFor(authority string, userID int64) bool {
	return authority != "" && authority == s.PendingAuthority && userID == s.PendingUserID
}

// SetPending records a new payment attempt, replacing any earlier one.
func (s *Session) SetPending(authority string, userID int64) {
	s.PendingAuthority = authority
	s.PendingUserID = userID
}

// ClearPending forgets the pending payment once it has been settled.
func (s *Session) ClearPending() {
	s.PendingAuthority = ""
	s.PendingUserID = 0
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the request's session, or nil outside the session middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

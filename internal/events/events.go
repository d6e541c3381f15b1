package events

import (
	"context"
	"time"
)

const RKOrderPaid = "order.paid"

type OrderPaid struct {
	EventID    string          `json:"event_id"`
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice int64           `json:"total_price"`
	Items      []OrderPaidItem `json:"items"`
	PaidAt     time.Time       `json:"paid_at"`
}

type OrderPaidItem struct {
	BookID    int64 `json:"book_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// Publisher sends one JSON message under a routing key.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// NopPublisher drops every message; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }

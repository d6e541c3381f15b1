package models

import "time"

type OrderStatus string

const OrderStatusPaid OrderStatus = "paid"

// MockOrderID is stored as the last order id by the debug payment bypass.
const MockOrderID int64 = -1

type Order struct {
	ID         int64       `json:"id"`
	UserID     int64       `json:"user_id"`
	TotalPrice int64       `json:"total_price"`
	Status     OrderStatus `json:"status"`
	Authority  string      `json:"authority"`
	CreatedAt  time.Time   `json:"created_at"`
	Items      []OrderItem `json:"items"`
}

type OrderItem struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	BookID    int64  `json:"book_id"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// NewPaidOrder snapshots the cart lines into an order whose total is recomputed from them.
func NewPaidOrder(userID int64, authority string, lines []CartLine) *Order {
	o := &Order{
		UserID:     userID,
		Status:     OrderStatusPaid,
		Authority:  authority,
		TotalPrice: CartTotal(lines),
		Items:      make([]OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		o.Items = append(o.Items, OrderItem{
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return o
}

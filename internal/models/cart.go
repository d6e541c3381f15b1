package models

type CartItem struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"user_id"`
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

// CartLine is a cart item joined with the book's current price and stock.
type CartLine struct {
	CartItem
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Stock     int    `json:"stock"`
}

func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartTotal sums the subtotals of lines.
func CartTotal(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

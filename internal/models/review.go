package models

import "time"

type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	BookID    int64     `json:"book_id"`
	BookTitle string    `json:"book_title,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	Book    Book      `json:"book"`
	AddedAt time.Time `json:"added_at"`
}

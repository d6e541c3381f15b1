package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mokabook/bookstore/internal/models"
)

// BookCache holds book details by id. Entries expire after the TTL and are
// dropped explicitly whenever a book's row changes.
type BookCache struct {
	lru *expirable.LRU[int64, models.Book]
}

func NewBookCache(size int, ttl time.Duration) *BookCache {
	return &BookCache{
		lru: expirable.NewLRU[int64, models.Book](size, nil, ttl),
	}
}

func (c *BookCache) Get(id int64) (models.Book, bool) {
	return c.lru.Get(id)
}

func (c *BookCache) Set(b models.Book) {
	c.lru.Add(b.ID, b)
}

func (c *BookCache) Invalidate(ids ...int64) {
	for _, id := range ids {
		c.lru.Remove(id)
	}
}

func (c *BookCache) Len() int {
	return c.lru.Len()
}

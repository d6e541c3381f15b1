package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mokabook/bookstore/internal/models"
)

func TestValidateBook(t *testing.T) {
	b := &models.Book{Title: "  Shazdeh Ehtejab ", Author: "Golshiri", Publisher: "Niloufar", Price: 120000, PageCount: 120}
	require.NoError(t, validateBook(b))
	assert.Equal(t, "Shazdeh Ehtejab", b.Title)
	assert.Equal(t, models.CategoryGeneral, b.Category)

	bad := &models.Book{Title: " ", Author: "x", Publisher: "y", Price: -1, PageCount: 0, Category: "poetry"}
	err := validateBook(bad)
	require.ErrorIs(t, err, ErrInvalidInput)
	for _, field := range []string{"title", "price", "page_count", "category"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidateReview(t *testing.T) {
	assert.NoError(t, validateReview(5, "great"))
	assert.ErrorIs(t, validateReview(0, "meh"), ErrInvalidInput)
	assert.ErrorIs(t, validateReview(3, "  "), ErrInvalidInput)
}

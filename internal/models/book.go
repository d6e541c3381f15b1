package models

import "time"

type Category string

const (
	CategoryGeneral Category = "general"
	CategoryScience Category = "science"
	CategoryNovel   Category = "novel"
	CategoryHistory Category = "history"
	CategoryChildYA Category = "child_ya"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryScience, CategoryNovel, CategoryHistory, CategoryChildYA:
		return true
	}
	return false
}

// Book prices are whole rials.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title" validate:"required,max=200"`
	Author          string    `json:"author" validate:"required,max=100"`
	Translator      *string   `json:"translator,omitempty" validate:"omitempty,max=100"`
	Publisher       string    `json:"publisher" validate:"required,max=100"`
	Introduction    string    `json:"introduction"`
	Price           int64     `json:"price" validate:"gte=0"`
	Category        Category  `json:"category" validate:"oneof=general science novel history child_ya"`
	PublicationYear int       `json:"publication_year" validate:"gte=0"`
	PageCount       int       `json:"page_count" validate:"gte=1"`
	Stock           int       `json:"stock" validate:"gte=0"`
	IsFeatured      bool      `json:"is_featured"`
	IsPopular       bool      `json:"is_popular"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookFilter mirrors the catalog search form. Zero values are ignored.
type BookFilter struct {
	Query      string
	Author     string
	Translator string
	Publisher  string
	Category   Category
	MinPrice   int64
	MaxPrice   int64
	Sort       string
}

var validSorts = map[string]string{
	"title":             "title ASC",
	"-publication_year": "publication_year DESC",
	"price":             "price ASC",
	"-price":            "price DESC",
}

// OrderBy returns the SQL ordering for f.Sort, or "" when the sort key is not allowed.
func (f BookFilter) OrderBy() string {
	return validSorts[f.Sort]
}

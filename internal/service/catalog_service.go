package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/models"
)

const (
	featuredLimit = 6
	popularLimit  = 4
	relatedLimit  = 4
)

type BookStore interface {
	List(ctx context.Context, f models.BookFilter) ([]models.Book, error)
	Get(ctx context.Context, id int64) (*models.Book, error)
	Related(ctx context.Context, b *models.Book, limit int) ([]models.Book, error)
	Featured(ctx context.Context, limit int) ([]models.Book, error)
	Popular(ctx context.Context, limit int) ([]models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error
}

type BookCache interface {
	Get(id int64) (models.Book, bool)
	Set(b models.Book)
	Invalidate(ids ...int64)
}

type WishlistChecker interface {
	Exists(ctx context.Context, userID, bookID int64) (bool, error)
}

type BookReviews interface {
	ListByBook(ctx context.Context, bookID int64) ([]models.Review, error)
}

type Home struct {
	Featured []models.Book `json:"featured"`
	Popular  []models.Book `json:"popular"`
}

type BookDetail struct {
	Book       models.Book     `json:"book"`
	Related    []models.Book   `json:"related"`
	InWishlist bool            `json:"in_wishlist"`
	Reviews    []models.Review `json:"reviews"`
}

type CatalogService struct {
	books    BookStore
	cache    BookCache
	wishlist WishlistChecker
	reviews  BookReviews
	log      zerolog.Logger
}

func NewCatalogService(books BookStore, cache BookCache, wishlist WishlistChecker, reviews BookReviews, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		books:    books,
		cache:    cache,
		wishlist: wishlist,
		reviews:  reviews,
		log:      log.With().Str("component", "catalog").Logger(),
	}
}

func (s *CatalogService) List(ctx context.Context, f models.BookFilter) ([]models.Book, error) {
	if f.Sort != "" && f.OrderBy() == "" {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, f.Sort)
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, f.Category)
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 || (f.MaxPrice > 0 && f.MinPrice > f.MaxPrice) {
		return nil, fmt.Errorf("%w: bad price range", ErrInvalidFilter)
	}
	return s.books.List(ctx, f)
}

func (s *CatalogService) Home(ctx context.Context) (Home, error) {
	featured, err := s.books.Featured(ctx, featuredLimit)
	if err != nil {
		return Home{}, fmt.Errorf("featured books: %w", err)
	}
	popular, err := s.books.Popular(ctx, popularLimit)
	if err != nil {
		return Home{}, fmt.Errorf("popular books: %w", err)
	}
	return Home{Featured: featured, Popular: popular}, nil
}

// Get serves a book through the cache.
func (s *CatalogService) Get(ctx context.Context, id int64) (models.Book, error) {
	if b, ok := s.cache.Get(id); ok {
		return b, nil
	}
	b, err := s.books.Get(ctx, id)
	if err != nil {
		return models.Book{}, err
	}
	s.cache.Set(*b)
	return *b, nil
}

// Detail returns the book page. userID 0 means an anonymous caller.
func (s *CatalogService) Detail(ctx context.Context, id, userID int64) (BookDetail, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return BookDetail{}, err
	}

	related, err := s.books.Related(ctx, &b, relatedLimit)
	if err != nil {
		return BookDetail{}, fmt.Errorf("related books: %w", err)
	}
	reviews, err := s.reviews.ListByBook(ctx, id)
	if err != nil {
		return BookDetail{}, fmt.Errorf("book reviews: %w", err)
	}

	var inWishlist bool
	if userID != 0 {
		if inWishlist, err = s.wishlist.Exists(ctx, userID, id); err != nil {
			return BookDetail{}, fmt.Errorf("wishlist lookup: %w", err)
		}
	}

	return BookDetail{Book: b, Related: related, InWishlist: inWishlist, Reviews: reviews}, nil
}

func (s *CatalogService) Create(ctx context.Context, b *models.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	if err := s.books.Create(ctx, b); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	s.log.Info().Int64("book_id", b.ID).Str("title", b.Title).Msg("book created")
	return nil
}

func (s *CatalogService) Update(ctx context.Context, b *models.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	if err := s.books.Update(ctx, b); err != nil {
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	s.cache.Invalidate(b.ID)
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	s.cache.Invalidate(id)
	s.log.Info().Int64("book_id", id).Msg("book deleted")
	return nil
}

func validateBook(b *models.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.Publisher = strings.TrimSpace(b.Publisher)
	if b.Category == "" {
		b.Category = models.CategoryGeneral
	}
	return validateStruct(b)
}

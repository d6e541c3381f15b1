package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mokabook/bookstore/internal/models"
)

type ReviewStore interface {
	Create(ctx context.Context, rv *models.Review) error
	Update(ctx context.Context, rv *models.Review) error
	Delete(ctx context.Context, id, userID int64) error
	ListByUser(ctx context.Context, userID int64) ([]models.Review, error)
}

type ReviewService struct {
	reviews ReviewStore
	books   BookGetter
}

func NewReviewService(reviews ReviewStore, books BookGetter) *ReviewService {
	return &ReviewService{reviews: reviews, books: books}
}

type reviewInput struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

func validateReview(rating int, comment string) error {
	return validateStruct(reviewInput{Rating: rating, Comment: strings.TrimSpace(comment)})
}

func (s *ReviewService) Create(ctx context.Context, userID, bookID int64, rating int, comment string) (*models.Review, error) {
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}
	if _, err := s.books.Get(ctx, bookID); err != nil {
		return nil, err
	}
	rv := &models.Review{UserID: userID, BookID: bookID, Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return rv, nil
}

// Update edits a review; reviews of other users are reported as not found.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID int64, rating int, comment string) (*models.Review, error) {
	if err := validateReview(rating, comment); err != nil {
		return nil, err
	}
	rv := &models.Review{ID: reviewID, UserID: userID, Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) Delete(ctx context.Context, userID, reviewID int64) error {
	return s.reviews.Delete(ctx, reviewID, userID)
}

func (s *ReviewService) ListMine(ctx context.Context, userID int64) ([]models.Review, error) {
	return s.reviews.ListByUser(ctx, userID)
}

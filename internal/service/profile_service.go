package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mokabook/bookstore/internal/models"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, p models.ProfileUpdate) error
}

type ProfileService struct {
	users ProfileStore
}

func NewProfileService(users ProfileStore) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Update trims the submitted fields; blank values clear the field.
func (s *ProfileService) Update(ctx context.Context, userID int64, p models.ProfileUpdate) (*models.User, error) {
	for _, f := range []**string{&p.FirstName, &p.LastName, &p.PhoneNumber, &p.Address, &p.PostalCode} {
		if *f == nil {
			continue
		}
		trimmed := strings.TrimSpace(**f)
		if trimmed == "" {
			*f = nil
			continue
		}
		*f = &trimmed
	}
	if err := validateStruct(p); err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfile(ctx, userID, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.users.GetByID(ctx, userID)
}

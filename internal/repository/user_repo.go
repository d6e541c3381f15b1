package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mokabook/bookstore/internal/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var (
		u                                       models.User
		phone, first, last, address, postalCode sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, email, phone_number, first_name, last_name, address, postal_code, date_joined
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &phone, &first, &last, &address, &postalCode, &u.DateJoined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u.PhoneNumber = nullableString(phone)
	u.FirstName = nullableString(first)
	u.LastName = nullableString(last)
	u.Address = nullableString(address)
	u.PostalCode = nullableString(postalCode)
	return &u, nil
}

// UpdateProfile overwrites the editable profile fields; nil clears a field.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, p models.ProfileUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, phone_number = $4, address = $5, postal_code = $6
		WHERE id = $1
	`, id, p.FirstName, p.LastName, p.PhoneNumber, p.Address, p.PostalCode)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

package models

import "time"

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
	Address     *string   `json:"address,omitempty"`
	PostalCode  *string   `json:"postal_code,omitempty"`
	DateJoined  time.Time `json:"date_joined"`
}

type ProfileUpdate struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=50"`
	LastName    *string `json:"last_name" validate:"omitempty,max=50"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=15"`
	Address     *string `json:"address" validate:"omitempty,max=1000"`
	PostalCode  *string `json:"postal_code" validate:"omitempty,max=20"`
}

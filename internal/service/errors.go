package service

import (
	"errors"

	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/repository"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrAuthorityMismatch       = errors.New("invalid or duplicate payment")
	ErrInvalidStatus           = errors.New("invalid payment status")
	ErrEmptyCartAtVerification = errors.New("payment verified but cart is empty")
	ErrOutOfStock              = errors.New("book is out of stock")
	ErrInvalidFilter           = errors.New("invalid filter")
	ErrInvalidInput            = errors.New("invalid input")
	ErrNotFound                = repository.ErrNotFound

	ErrGatewayUnreachable = gateway.ErrUnreachable
	ErrGatewayRejected    = gateway.ErrRejected
)

package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable covers transport failures, timeouts, an open breaker and unreadable bodies.
	ErrUnreachable = errors.New("payment gateway unreachable")
	// ErrRejected is matched by every *Error.
	ErrRejected = errors.New("payment gateway rejected the request")
)

// Error is a business error reported by the gateway.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrRejected
}

package repository

import (
	"errors"

	"cybermarket/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique handle or email is already taken.
	ErrConflict = errors.New("unique field conflict")

	// ErrInvitationRejected is returned when no matching invitation exists.
	ErrInvitationRejected = errors.New("invitation rejected")

	// ErrQuantityOverflow is returned when adding to a cart line or to a
	// product's stock would exceed the largest representable quantity.
	ErrQuantityOverflow = errors.New("quantity overflow")

	// ErrInsufficientStock is returned by SettleCartLine when the line
	// cannot be satisfied.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ShortageError carries the details of an unsatisfiable cart line.
type ShortageError struct {
	Shortage model.Shortage
}

func (e *ShortageError) Error() string {
	return e.Shortage.String()
}

func (e *ShortageError) Unwrap() error {
	return ErrInsufficientStock
}

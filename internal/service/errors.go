// Package service implements the booking core: availability, the
// reservation lifecycle, payment reconciliation, ticket issuance and
// restaurant orders.  Handlers translate its sentinel errors into HTTP
// responses.
package service

import (
	"errors"

	"github.com/iliyamo/resort-reservation/internal/repository"
)

var (
	ErrInvalidRange         = errors.New("invalid date range")
	ErrInvalidDates         = errors.New("check-out must be after check-in")
	ErrRoomUnavailable      = errors.New("room unavailable for the requested dates")
	ErrInvalidGuestDocument = errors.New("invalid guest document")
	ErrCapacityExceeded     = errors.New("room capacity exceeded")
	ErrRoomNotFound         = errors.New("room not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrTicketNotEligible    = errors.New("reservation is not eligible for a ticket")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidOrder         = errors.New("invalid restaurant order")
	ErrDishUnavailable      = errors.New("dish unavailable")
	ErrOrderNotFound        = errors.New("order not found")
	ErrNotPayable           = errors.New("reservation is not awaiting payment")
	ErrPaymentUnavailable   = errors.New("payment provider unavailable")

	// ErrPersistenceConflict is a write that lost a race with a
	// concurrent transaction.
	ErrPersistenceConflict = repository.ErrConflict
	// ErrForbidden is returned when the actor neither owns the resource
	// nor is an administrator.
	ErrForbidden = repository.ErrForbidden
)

// Actor identifies the caller of an owner-or-admin operation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// CanAccess reports whether the actor may act on a resource of owner.
func (a Actor) CanAccess(owner uint64) bool { return a.Admin || a.UserID == owner }

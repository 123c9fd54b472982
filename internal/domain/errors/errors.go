package errors

import (
	"errors"
)

var (
	ErrSaleNotFound     = errors.New("flash sale not found")
	ErrPurchaseNotFound = errors.New("purchase not found")

	ErrSaleNotStarted   = errors.New("sale has not started yet")
	ErrSaleEnded        = errors.New("sale has ended")
	ErrSaleSoldOut      = errors.New("item is sold out")
	ErrAlreadyPurchased = errors.New("user has already purchased this item")

	ErrStoreUnavailable = errors.New("shared store unavailable")

	// ErrInvariantViolation marks a bug in the store-side atomicity guarantee
	// (negative counter, duplicate marker). Never a business outcome.
	ErrInvariantViolation = errors.New("reservation invariant violated")
)

// IsBusinessRejection reports whether err is an expected, frequent outcome of
// the reservation protocol rather than a system fault.
func IsBusinessRejection(err error) bool {
	switch {
	case errors.Is(err, ErrSaleNotStarted),
		errors.Is(err, ErrSaleEnded),
		errors.Is(err, ErrSaleSoldOut),
		errors.Is(err, ErrAlreadyPurchased):
		return true
	default:
		return false
	}
}

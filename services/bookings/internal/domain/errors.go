package domain

import "errors"

var (
	ErrValidation             = errors.New("validation failed")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrSlotUnavailable        = errors.New("slot is no longer available")
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
	ErrTransientConflict      = errors.New("reservation contention, retry later")
	ErrPermissionDenied       = errors.New("permission denied")

	// ErrWriteConflict is reported by a store when a concurrent writer committed
	// first. The reservation loop retries on it; it never leaves the service layer.
	ErrWriteConflict = errors.New("concurrent write conflict")
)

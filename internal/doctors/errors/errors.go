package errors

import "errors"

var (
	ErrNotFound = errors.New("doctor not found")

	ErrInvalidID = errors.New("invalid doctor ID format")

	// ErrSlotUnavailable covers both "already booked" and "no such
	// slot": the conditional update cannot tell them apart and the
	// caller reacts the same way to both.
	ErrSlotUnavailable = errors.New("slot is unavailable")

	ErrSlotNotBooked = errors.New("slot is not booked")

	ErrDuplicateSlot = errors.New("slot already exists for this doctor")
)

package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrStatusConflict means a conditional status transition matched
	// nothing: the appointment moved to a terminal state concurrently.
	ErrStatusConflict = errors.New("appointment status changed concurrently")

	// ErrLockHeld means another reservation for the same slot holds the
	// advisory lock right now.
	ErrLockHeld = errors.New("slot lock already held")
)

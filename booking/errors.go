package booking

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSlotConflict     = errors.New("time slot is already booked")
	ErrNotFound         = errors.New("booking not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnavailable = errors.New("store unavailable")
)

package database

import "errors"

var (
	// ErrNotFound is returned when a booking id does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid booking status")
)

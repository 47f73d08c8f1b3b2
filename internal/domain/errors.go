package domain

import "errors"

// Image lifecycle errors
var (
	// ErrImageIDEmpty is returned when an image ID is empty.
	ErrImageIDEmpty = errors.New("image ID cannot be empty")

	// ErrImageNotFound is returned when no record exists for the requested ID.
	ErrImageNotFound = errors.New("image record not found")

	// ErrInvalidTransition is returned when a state change would move a
	// record backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid image state transition")
)

package model

import "errors"

// Sentinel kinds for model validation and state transitions.
var (
	ErrInvalid           = errors.New("invalid model")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound is returned by stores when an entity does not exist.
	ErrNotFound = errors.New("not found")
)

package repository

import "errors"

var (
	// ErrDuplicate is returned when a write violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotConsumable is returned when a credential token was already
	// consumed, expired, or removed by the time the consuming write ran
	ErrNotConsumable = errors.New("credential token cannot be consumed")
)

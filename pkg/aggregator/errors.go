package aggregator

import "errors"

var (
	// ErrClosed is returned when an event arrives after Finalize.
	ErrClosed = errors.New("session is closed")

	// ErrInvalidEvent is returned when an event fails validation.
	ErrInvalidEvent = errors.New("invalid event")
)

package locate

import "errors"

var (
	// ErrUnknownPlatform is returned for a platform with no locator.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrNoActivity is returned when no log file appeared before the
	// wait was cancelled.
	ErrNoActivity = errors.New("no platform activity detected")
)

package tail

import "errors"

var (
	// ErrNoDiscover is returned when no discover function is configured.
	ErrNoDiscover = errors.New("discover function is required")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("tailer already running")
)

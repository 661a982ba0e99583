package pricing

import "errors"

var (
	// ErrTableNotFound indicates the rate table file does not exist.
	ErrTableNotFound = errors.New("pricing table not found")

	// ErrInvalidTable indicates the rate table failed to parse or
	// failed validation.
	ErrInvalidTable = errors.New("invalid pricing table")

	// ErrNegativeRate indicates a table entry carries a negative rate.
	ErrNegativeRate = errors.New("negative rate in pricing table")
)

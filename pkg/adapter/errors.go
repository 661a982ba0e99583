package adapter

import "errors"

var (
	// ErrUnknownPlatform is returned for a platform with no adapter.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrMalformedRecord is returned when a record cannot be parsed.
	// The record is skipped and counted; monitoring continues.
	ErrMalformedRecord = errors.New("malformed record")
)

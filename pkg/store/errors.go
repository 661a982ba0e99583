package store

import "errors"

var (
	// ErrNilSnapshot is returned when Save is given nothing to save.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrNotARecord is returned when a file is not a session record.
	ErrNotARecord = errors.New("not a session record")

	// ErrSchemaTooNew is returned when a record was written by a
	// newer schema than this build understands.
	ErrSchemaTooNew = errors.New("record schema is newer than supported")
)

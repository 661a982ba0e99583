package display

import "errors"

// ErrUnknownMode is returned for an unrecognized display mode.
var ErrUnknownMode = errors.New("unknown display mode: must be simple, table, or json")

package collector

import "errors"

// ErrIncomplete is returned when a required pipeline stage is missing.
var ErrIncomplete = errors.New("collector needs a tailer, an adapter, and an aggregator")

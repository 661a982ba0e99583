package event

import "errors"

// Common errors returned by the event package.
var (
	// ErrUnknownKind is returned when an event has an unrecognized kind.
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrNoTimestamp is returned when an event has a zero timestamp.
	ErrNoTimestamp = errors.New("event timestamp must not be zero")

	// ErrNegativeTokens is returned when any token count is negative.
	ErrNegativeTokens = errors.New("token counts must be non-negative")

	// ErrNoToolName is returned when a tool call event has no tool name.
	ErrNoToolName = errors.New("tool call event requires a tool name")

	// ErrNoModel is returned when a model_info event has no model identifier.
	ErrNoModel = errors.New("model_info event requires a model identifier")
)

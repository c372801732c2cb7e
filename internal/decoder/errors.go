package decoder

import "errors"

// Sentinel errors distinguishable via errors.Is by callers that need to
// branch on cause rather than just log a message.
var (
	// ErrValidation marks a schema mismatch or missing mandatory field.
	ErrValidation = errors.New("sca decoder: validation failed")
	// ErrStoreUnavailable marks a store query that could not be completed
	// and for which the handler has no safe default.
	ErrStoreUnavailable = errors.New("sca decoder: store unavailable")
	// ErrUnknownType marks an event whose /type is not one of the four
	// known kinds.
	ErrUnknownType = errors.New("sca decoder: unknown event type")
)

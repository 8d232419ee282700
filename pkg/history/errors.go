package history

import "errors"

var (
	// ErrInvalidPush is delivered to a Push made while an armed commit is
	// already past its debounce window but has not run yet.
	ErrInvalidPush = errors.New("invalid push ops")

	// ErrReset is delivered to pending pushes cancelled by Reset.
	ErrReset = errors.New("history reset")
)

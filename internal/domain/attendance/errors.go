package attendance

import "errors"

var (
	// ErrInvalidRange is returned before any data access when a requested
	// period is impossible (bad month, end before start, future date).
	ErrInvalidRange = errors.New("invalid attendance range")

	ErrUserRequired        = errors.New("user id is required")
	ErrCorrectionsDisabled = errors.New("the configured event store does not accept corrections")
)

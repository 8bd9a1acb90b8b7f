package punch

import "errors"

var (
	// ErrDataUnavailable is returned when the event store fails or times out.
	ErrDataUnavailable = errors.New("attendance data unavailable")
	ErrInvalidQuery    = errors.New("invalid event query range")
	ErrInvalidEvent    = errors.New("invalid punch event")
	ErrEventNotFound   = errors.New("punch event not found")
)

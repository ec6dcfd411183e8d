package availability

import "errors"

var (
	// ErrInvalidRange is returned when the window start is not before its end.
	ErrInvalidRange = errors.New("start time must be before end time")

	// ErrNoWindow is returned when the doctor has no AVAILABLE window.
	ErrNoWindow = errors.New("no availability window set")
)

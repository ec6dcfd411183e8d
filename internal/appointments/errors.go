package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment matches the id.
	ErrNotFound = errors.New("appointment not found")

	// ErrForbidden is returned when the actor is not entitled to the
	// appointment.
	ErrForbidden = errors.New("not a party to this appointment")

	// ErrInvalidRange is returned when start/end are malformed or the
	// duration is not exactly 30 minutes.
	ErrInvalidRange = errors.New("invalid appointment time range")

	// ErrSelfBooking is returned when patient and doctor are the same
	// account.
	ErrSelfBooking = errors.New("cannot book an appointment with yourself")

	// ErrOverlapConflict is returned when the slot was taken by another
	// SCHEDULED appointment.
	ErrOverlapConflict = errors.New("slot overlaps an existing appointment")

	// ErrAlreadyTerminal is returned when cancelling a COMPLETED or
	// CANCELLED appointment.
	ErrAlreadyTerminal = errors.New("appointment is already completed or cancelled")

	// ErrNotScheduled is returned when completing an appointment that is not
	// SCHEDULED.
	ErrNotScheduled = errors.New("appointment is not scheduled")

	// ErrTooEarly is returned when completing before the end time.
	ErrTooEarly = errors.New("appointment has not ended yet")

	// ErrTooLateToCancel is returned when the cancellation cutoff has
	// passed.
	ErrTooLateToCancel = errors.New("too close to the appointment start to cancel")
)

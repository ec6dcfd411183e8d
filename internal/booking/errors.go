package booking

import "errors"

var (
	// ErrNotPatient is returned when the booking caller is not a patient
	// account.
	ErrNotPatient = errors.New("only patients can book appointments")

	// ErrSlotUnavailable is returned when the requested slot is not one the
	// doctor's current window offers.
	ErrSlotUnavailable = errors.New("requested slot is not offered")
)

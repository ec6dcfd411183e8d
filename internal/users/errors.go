package users

import "errors"

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrNotDoctor is returned when the target user is not a verified doctor.
	ErrNotDoctor = errors.New("user is not a verified doctor")

	// ErrInvalidRole is returned when an onboarding choice is not PATIENT or
	// DOCTOR, or a doctor application is missing required fields.
	ErrInvalidRole = errors.New("invalid role selection")
)

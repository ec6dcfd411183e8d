package credits

import "errors"

var (
	// ErrInsufficientCredits is returned when a charge would take the payer
	// below zero.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrUnknownPlan is returned for a plan with no credit allowance entry.
	ErrUnknownPlan = errors.New("unknown credit plan")

	// ErrUserNotFound is returned when the charged or credited user does not
	// exist.
	ErrUserNotFound = errors.New("credit account user not found")
)

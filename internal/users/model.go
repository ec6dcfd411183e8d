package users

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies what a user can do on the platform.
type Role string

const (
	RoleUnassigned Role = "UNASSIGNED"
	RolePatient    Role = "PATIENT"
	RoleDoctor     Role = "DOCTOR"
	RoleAdmin      Role = "ADMIN"
)

// VerificationStatus tracks the admin review of a doctor application.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// User is a platform account. Doctor-only fields are empty for patients.
// Credits is a denormalized view of the credit transaction log and is only
// mutated inside credit transactions.
type User struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	Role               Role               `json:"role"`
	Credits            int                `json:"credits"`
	Specialty          string             `json:"specialty,omitempty"`
	Experience         int                `json:"experience,omitempty"`
	CredentialURL      string             `json:"credentialUrl,omitempty"`
	Description        string             `json:"description,omitempty"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// IsVerifiedDoctor reports whether the user may take bookings.
func (u *User) IsVerifiedDoctor() bool {
	return u != nil && u.Role == RoleDoctor && u.VerificationStatus == VerificationVerified
}

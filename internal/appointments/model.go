package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state. SCHEDULED is the only state
// transitions leave from; COMPLETED and CANCELLED are terminal.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Duration is the fixed appointment length.
const Duration = 30 * time.Minute

// Appointment is one booked consultation between a patient and a doctor.
// WindowID records which availability window the slot was derived from so
// that window is retained for ledger integrity.
type Appointment struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patientId"`
	DoctorID           uuid.UUID  `json:"doctorId"`
	WindowID           *uuid.UUID `json:"windowId,omitempty"`
	StartTime          time.Time  `json:"startTime"`
	EndTime            time.Time  `json:"endTime"`
	Status             Status     `json:"status"`
	PatientDescription string     `json:"patientDescription,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	VideoSessionID     string     `json:"videoSessionId,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// IsParty reports whether userID is the patient or the doctor on the
// appointment.
func (a *Appointment) IsParty(userID uuid.UUID) bool {
	return a != nil && (a.PatientID == userID || a.DoctorID == userID)
}

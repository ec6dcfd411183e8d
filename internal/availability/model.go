package availability

import (
	"time"

	"github.com/google/uuid"
)

// Status of an availability window. A superseded window sticks around when
// an appointment was booked off it, so the booking ledger keeps a valid
// reference.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusSuperseded Status = "SUPERSEDED"
)

// Window is a doctor's recurring daily availability: the wall-clock
// start/end apply to every day. A doctor has at most one AVAILABLE window.
type Window struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

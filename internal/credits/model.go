package credits

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is the reason a credit movement happened.
type TransactionType string

const (
	TypePurchase   TransactionType = "CREDIT_PURCHASE"
	TypeDeduction  TransactionType = "APPOINTMENT_DEDUCTION"
	TypeRefund     TransactionType = "APPOINTMENT_REFUND"
	TypeChargeback TransactionType = "APPOINTMENT_CHARGEBACK"
)

// Transaction is an immutable, append-only credit movement. A user's
// balance is the running sum of their transactions; the denormalized
// users.credits column is adjusted in the same database transaction that
// appends rows here.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Amount    int             `json:"amount"`
	Type      TransactionType `json:"type"`
	PackageID string          `json:"packageId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AppointmentCost is the fixed credit price of one consultation.
const AppointmentCost = 2

// PlanCredits maps subscription plans to their monthly credit allowance.
var PlanCredits = map[string]int{
	"free_user": 2,
	"standard":  10,
	"premium":   24,
}

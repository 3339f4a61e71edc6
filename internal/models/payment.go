package models

import "time"

// Payment statuses and types used by the settlement ledger.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
	PaymentStatusFailed  = "failed"

	PaymentTypeEventBooking = "event_booking"
)

// Payment is a ledger row recorded alongside a settled booking. It is written
// best-effort: a booking without its payment row is reconciled later rather
// than failing the settlement.
type Payment struct {
	BaseModel

	MemberID    string `gorm:"type:uuid;not null;index" json:"member_id"`
	AmountPence int64  `gorm:"not null" json:"amount_pence"`
	Currency    string `gorm:"not null;default:GBP" json:"currency"`

	PaymentType   string `gorm:"not null" json:"payment_type"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Status        string `gorm:"not null;default:pending;index" json:"status"`

	PaidAt *time.Time `json:"paid_at,omitempty"`

	PaymentReferenceID *string `gorm:"index" json:"payment_reference_id,omitempty"`
	// ReferenceID points at the booking this payment settles.
	ReferenceID string `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	Description string `json:"description,omitempty"`
}

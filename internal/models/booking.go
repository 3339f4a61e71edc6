package models

// Booking statuses.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusPending   = "pending"
	BookingStatusCancelled = "cancelled"
	BookingStatusRefunded  = "refunded"
)

// Booking reserves a member's seat at an event. PaymentReferenceID carries the
// payment provider's reference and is the sole idempotency key for webhook
// settlement: the unique index guarantees at most one booking per reference.
type Booking struct {
	BaseModel

	EventID  string `gorm:"type:uuid;not null;index" json:"event_id"`
	MemberID string `gorm:"type:uuid;not null;index" json:"member_id"`

	Status        string `gorm:"not null;default:pending;index" json:"status"`
	AmountPence   int64  `gorm:"not null;default:0" json:"amount_pence"`
	PaymentMethod string `json:"payment_method,omitempty"`

	PaymentReferenceID *string `gorm:"uniqueIndex" json:"payment_reference_id,omitempty"`

	Event  *Event  `gorm:"constraint:OnDelete:CASCADE" json:"event,omitempty"`
	Member *Member `gorm:"constraint:OnDelete:CASCADE" json:"member,omitempty"`
}

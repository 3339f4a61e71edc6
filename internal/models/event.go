package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event statuses. Only published and live events accept bookings.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusLive      = "live"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// Event is a club event with an optional seat capacity. A nil Capacity means
// unlimited seats.
type Event struct {
	BaseModel

	Title  string `gorm:"not null" json:"title"`
	Slug   string `gorm:"not null;uniqueIndex" json:"slug"`
	Status string `gorm:"not null;default:draft;index" json:"status"`

	Capacity         *int  `json:"capacity,omitempty"`
	MemberPricePence int64 `gorm:"not null;default:0" json:"member_price_pence"`

	StartDate *time.Time     `json:"start_date,omitempty"`
	Agenda    datatypes.JSON `json:"agenda,omitempty"`
	Speakers  datatypes.JSON `json:"speakers,omitempty"`
}

// Bookable reports whether the event currently accepts bookings.
func (e *Event) Bookable() bool {
	return e != nil && (e.Status == EventStatusPublished || e.Status == EventStatusLive)
}

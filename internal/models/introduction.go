package models

import (
	"time"

	"gorm.io/datatypes"
)

// Introduction lifecycle statuses. Completed and declined are terminal.
const (
	IntroStatusSuggested = "suggested"
	IntroStatusApproved  = "approved"
	IntroStatusSent      = "sent"
	IntroStatusAccepted  = "accepted"
	IntroStatusCompleted = "completed"
	IntroStatusDeclined  = "declined"
)

// Introduction pairs two members for a facilitated business introduction.
//
// The pair is stored in canonical order (MemberAID < MemberBID by identifier)
// so the unordered pair has a single representation; at most one non-declined
// row may exist per pair. Declined rows remain as history and any number of
// them may accumulate.
type Introduction struct {
	BaseModel

	MemberAID string `gorm:"type:uuid;not null;index:idx_intro_pair,priority:1" json:"member_a_id"`
	MemberBID string `gorm:"type:uuid;not null;index:idx_intro_pair,priority:2" json:"member_b_id"`

	Status string `gorm:"not null;default:suggested;index" json:"status"`

	MatchScore   *float64                   `json:"match_score,omitempty"`
	MatchReason  string                     `json:"match_reason,omitempty"`
	MatchingTags datatypes.JSONSlice[string] `json:"matching_tags,omitempty"`

	EventID     *string `gorm:"type:uuid;index" json:"event_id,omitempty"`
	RequestedBy *string `gorm:"type:uuid" json:"requested_by,omitempty"`

	SuggestedAt time.Time  `gorm:"not null" json:"suggested_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *string    `gorm:"type:uuid" json:"approved_by,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`

	// Outcome fields are only meaningful once Status == completed. They may be
	// revised repeatedly afterwards; revising them is a data update, not a
	// lifecycle transition.
	Outcome             *string `json:"outcome,omitempty"`
	BusinessConverted   bool    `gorm:"not null;default:false" json:"business_converted"`
	EstimatedValuePence *int64  `json:"estimated_value_pence,omitempty"`

	MemberA *Member `gorm:"foreignKey:MemberAID" json:"member_a,omitempty"`
	MemberB *Member `gorm:"foreignKey:MemberBID" json:"member_b,omitempty"`
}

// IsTerminal reports whether the introduction has reached a final status.
func (i *Introduction) IsTerminal() bool {
	return i != nil && (i.Status == IntroStatusCompleted || i.Status == IntroStatusDeclined)
}

// Involves reports whether the given member is either side of the pair.
func (i *Introduction) Involves(memberID string) bool {
	return i != nil && (i.MemberAID == memberID || i.MemberBID == memberID)
}

// OtherMember returns the identifier of the counterparty to memberID, or ""
// when the member is not part of the pair.
func (i *Introduction) OtherMember(memberID string) string {
	switch {
	case i == nil:
		return ""
	case i.MemberAID == memberID:
		return i.MemberBID
	case i.MemberBID == memberID:
		return i.MemberAID
	default:
		return ""
	}
}

// OrderPair returns the two member identifiers in canonical storage order.
// Callers never need to pre-sort; the stored row always holds the lower
// identifier in member_a_id.
func OrderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// ValidIntroStatus reports whether the supplied status is a known lifecycle
// status.
func ValidIntroStatus(status string) bool {
	switch status {
	case IntroStatusSuggested, IntroStatusApproved, IntroStatusSent,
		IntroStatusAccepted, IntroStatusCompleted, IntroStatusDeclined:
		return true
	}
	return false
}

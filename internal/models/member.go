package models

import (
	"gorm.io/gorm"
)

// Membership statuses mirrored from the member administration side. Only
// active members participate in matching.
const (
	MembershipStatusActive    = "active"
	MembershipStatusPending   = "pending"
	MembershipStatusExpired   = "expired"
	MembershipStatusCancelled = "cancelled"
)

// Member is a club member. The engine reads the quota columns as an advisory
// eligibility signal; the monthly reset job zeroes IntrosUsedThisMonth.
type Member struct {
	BaseModel

	Name             string `gorm:"not null" json:"name"`
	CompanyName      string `json:"company_name,omitempty"`
	MembershipStatus string `gorm:"not null;default:active;index" json:"membership_status"`

	MonthlyIntroQuota   int `gorm:"not null;default:2" json:"monthly_intro_quota"`
	IntrosUsedThisMonth int `gorm:"not null;default:0" json:"intros_used_this_month"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Tags []Tag `gorm:"many2many:member_tags" json:"tags,omitempty"`
}

// IsActive reports whether the member should appear in matching pools.
func (m *Member) IsActive() bool {
	return m != nil && m.MembershipStatus == MembershipStatusActive
}

// QuotaExhausted reports whether the member has used up this month's
// introduction allowance. Advisory only; creation is not blocked on it.
func (m *Member) QuotaExhausted() bool {
	return m != nil && m.MonthlyIntroQuota > 0 && m.IntrosUsedThisMonth >= m.MonthlyIntroQuota
}

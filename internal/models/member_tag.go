package models

import "time"

// MemberTag is the join row assigning a tag to a member. Declared explicitly
// (rather than relying on the implicit many2many table) so the attribute index
// can load all assignments in one query.
type MemberTag struct {
	MemberID  string    `gorm:"primaryKey;type:uuid" json:"member_id"`
	TagID     string    `gorm:"primaryKey;type:uuid" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`

	Tag *Tag `gorm:"constraint:OnDelete:CASCADE" json:"tag,omitempty"`
}

package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
)

func seedMember(t *testing.T, db *gorm.DB, id, name string) *models.Member {
	t.Helper()

	member := models.Member{
		BaseModel:         models.BaseModel{ID: id},
		Name:              name,
		MembershipStatus:  models.MembershipStatusActive,
		MonthlyIntroQuota: 2,
	}
	require.NoError(t, db.Create(&member).Error)
	return &member
}

func seedTag(t *testing.T, db *gorm.DB, id, name, category string) *models.Tag {
	t.Helper()

	tag := models.Tag{BaseModel: models.BaseModel{ID: id}, Name: name, Category: category}
	require.NoError(t, db.Create(&tag).Error)
	return &tag
}

func assignTag(t *testing.T, db *gorm.DB, memberID, tagID string) {
	t.Helper()

	require.NoError(t, db.Create(&models.MemberTag{MemberID: memberID, TagID: tagID}).Error)
}

func seedEvent(t *testing.T, db *gorm.DB, id, title, status string, capacity *int) *models.Event {
	t.Helper()

	event := models.Event{
		BaseModel:        models.BaseModel{ID: id},
		Title:            title,
		Slug:             id,
		Status:           status,
		Capacity:         capacity,
		MemberPricePence: 15000,
	}
	require.NoError(t, db.Create(&event).Error)
	return &event
}

func intPtr(v int) *int { return &v }

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
)

var (
	// ErrMemberNotFound indicates the requested member does not exist.
	ErrMemberNotFound = errors.New("member service: member not found")
)

// MemberService reads member records and their tag assignments on behalf of
// the matching engine. Member CRUD itself belongs to the surrounding
// administration layer.
type MemberService struct {
	db *gorm.DB
}

// NewMemberService constructs a member service once a database handle is supplied.
func NewMemberService(db *gorm.DB) (*MemberService, error) {
	if db == nil {
		return nil, errors.New("member service: db is required")
	}
	return &MemberService{db: db}, nil
}

// MonthlyQuota is the advisory introduction allowance for a member.
type MonthlyQuota struct {
	MemberID string `json:"member_id"`
	Quota    int    `json:"quota"`
	Used     int    `json:"used"`
}

// Exhausted reports whether the allowance has been used up. A zero quota means
// unlimited.
func (q MonthlyQuota) Exhausted() bool {
	return q.Quota > 0 && q.Used >= q.Quota
}

// Get retrieves a member by identifier with tags preloaded.
func (s *MemberService) Get(ctx context.Context, id string) (*models.Member, error) {
	if s == nil {
		return nil, errors.New("member service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("member service: id is required")
	}

	var member models.Member
	err := s.db.WithContext(ctx).Preload("Tags").First(&member, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// ListActiveWithTags returns all active members with their tags preloaded,
// newest first. This is the matching pool snapshot.
func (s *MemberService) ListActiveWithTags(ctx context.Context) ([]models.Member, error) {
	if s == nil {
		return nil, errors.New("member service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	var members []models.Member
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("membership_status = ?", models.MembershipStatusActive).
		Order("created_at DESC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Quota returns the member's monthly introduction allowance and usage.
func (s *MemberService) Quota(ctx context.Context, memberID string) (MonthlyQuota, error) {
	if s == nil {
		return MonthlyQuota{}, errors.New("member service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return MonthlyQuota{}, errors.New("member service: member id is required")
	}

	var member models.Member
	err := s.db.WithContext(ctx).
		Select("id", "monthly_intro_quota", "intros_used_this_month").
		First(&member, "id = ?", memberID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MonthlyQuota{}, ErrMemberNotFound
		}
		return MonthlyQuota{}, err
	}

	return MonthlyQuota{
		MemberID: member.ID,
		Quota:    member.MonthlyIntroQuota,
		Used:     member.IntrosUsedThisMonth,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clubworks/atrium/internal/models"
)

var (
	// ErrTagNotFound indicates the requested tag does not exist.
	ErrTagNotFound = errors.New("tag service: tag not found")
)

// TagService exposes the tag catalogue and member tag assignments. The
// catalogue itself is read-mostly; assignment and removal exist so profiles
// can be tagged ahead of matching.
type TagService struct {
	db *gorm.DB
}

// NewTagService constructs a tag service once a database handle is supplied.
func NewTagService(db *gorm.DB) (*TagService, error) {
	if db == nil {
		return nil, errors.New("tag service: db is required")
	}
	return &TagService{db: db}, nil
}

// List returns the full tag catalogue, optionally filtered by category.
func (s *TagService) List(ctx context.Context, category string) ([]models.Tag, error) {
	if s == nil {
		return nil, errors.New("tag service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	q := s.db.WithContext(ctx).Model(&models.Tag{}).Order("category, LOWER(name)")

	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" {
		if !models.ValidTagCategory(category) {
			return nil, fmt.Errorf("tag service: unknown category %q", category)
		}
		q = q.Where("category = ?", category)
	}

	var tags []models.Tag
	if err := q.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// ListMemberTags returns a member's tag assignments with tags preloaded.
func (s *TagService) ListMemberTags(ctx context.Context, memberID string) ([]models.MemberTag, error) {
	if s == nil {
		return nil, errors.New("tag service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, errors.New("tag service: member id is required")
	}

	var assignments []models.MemberTag
	err := s.db.WithContext(ctx).
		Preload("Tag").
		Where("member_id = ?", memberID).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// Assign attaches a tag to a member. Assigning an already-assigned tag is a
// no-op.
func (s *TagService) Assign(ctx context.Context, memberID, tagID string) error {
	if s == nil {
		return errors.New("tag service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	memberID = strings.TrimSpace(memberID)
	tagID = strings.TrimSpace(tagID)
	if memberID == "" || tagID == "" {
		return errors.New("tag service: member id and tag id are required")
	}

	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, "id = ?", tagID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}

	assignment := models.MemberTag{MemberID: memberID, TagID: tagID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignment).Error
}

// Remove detaches a tag from a member.
func (s *TagService) Remove(ctx context.Context, memberID, tagID string) error {
	if s == nil {
		return errors.New("tag service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	return s.db.WithContext(ctx).
		Where("member_id = ? AND tag_id = ?", memberID, tagID).
		Delete(&models.MemberTag{}).Error
}

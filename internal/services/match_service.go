package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/matching"
	"github.com/clubworks/atrium/internal/models"
	apperrors "github.com/clubworks/atrium/pkg/errors"
	"github.com/clubworks/atrium/pkg/metrics"
)

// MatchService assembles a fresh snapshot of member and tag data, applies the
// pairing constraint filter and runs the compatibility scorer. Scoring has no
// side effects; concurrent suggestion requests are independent.
type MatchService struct {
	db   *gorm.DB
	topN int
}

// MatchServiceOption customises the match service.
type MatchServiceOption func(*MatchService)

// WithTopN overrides how many ranked candidates a suggestion run returns.
func WithTopN(n int) MatchServiceOption {
	return func(s *MatchService) {
		if n != 0 {
			s.topN = n
		}
	}
}

// NewMatchService constructs a match service once a database handle is supplied.
func NewMatchService(db *gorm.DB, opts ...MatchServiceOption) (*MatchService, error) {
	if db == nil {
		return nil, errors.New("match service: db is required")
	}
	s := &MatchService{db: db, topN: matching.DefaultTopN}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MatchSuggestion is one ranked candidate with display data attached.
type MatchSuggestion struct {
	MemberID       string       `json:"member_id"`
	Name           string       `json:"name"`
	CompanyName    string       `json:"company_name,omitempty"`
	Score          float64      `json:"score"`
	MatchReason    string       `json:"match_reason,omitempty"`
	SharedTags     []string     `json:"shared_tags,omitempty"`
	MatchingTagIDs []string     `json:"matching_tag_ids,omitempty"`
	Tags           []models.Tag `json:"tags,omitempty"`
}

// MatchSuggestions is the outcome of one suggestion run for a target member.
type MatchSuggestions struct {
	TargetID       string            `json:"target_id"`
	TargetQuota    MonthlyQuota      `json:"target_quota"`
	QuotaExhausted bool              `json:"quota_exhausted"`
	Results        []MatchSuggestion `json:"results"`
}

// Suggest ranks eligible candidates for the target member.
//
// Members with any existing introduction involving the target, in either
// direction and regardless of status, are filtered out before scoring so
// normalisation is not skewed by ineligible candidates. A target without tags
// yields ErrNoAttributes rather than an empty result.
func (s *MatchService) Suggest(ctx context.Context, targetID string) (*MatchSuggestions, error) {
	if s == nil {
		return nil, errors.New("match service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, errors.New("match service: target member id is required")
	}

	suggestions, err := s.suggest(ctx, targetID)
	switch {
	case err == nil:
		metrics.MatchRequests.WithLabelValues("ok").Inc()
	case errors.Is(err, apperrors.ErrNoAttributes):
		metrics.MatchRequests.WithLabelValues("no_attributes").Inc()
	default:
		metrics.MatchRequests.WithLabelValues("error").Inc()
	}
	return suggestions, err
}

func (s *MatchService) suggest(ctx context.Context, targetID string) (*MatchSuggestions, error) {
	var members []models.Member
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("membership_status = ?", models.MembershipStatusActive).
		Order("created_at DESC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	var target *models.Member
	for i := range members {
		if members[i].ID == targetID {
			target = &members[i]
			break
		}
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}

	excluded, err := s.pairedMemberIDs(ctx, targetID)
	if err != nil {
		return nil, err
	}

	pool := make([]matching.Candidate, 0, len(members))
	byID := make(map[string]*models.Member, len(members))
	for i := range members {
		member := &members[i]
		byID[member.ID] = member
		pool = append(pool, matching.Candidate{
			MemberID:   member.ID,
			Name:       member.Name,
			Attributes: matching.NewAttributeSet(tagRefs(member.Tags)),
		})
	}

	targetCandidate := matching.Candidate{
		MemberID:   target.ID,
		Name:       target.Name,
		Attributes: matching.NewAttributeSet(tagRefs(target.Tags)),
	}

	ranked, err := matching.ScoreCandidates(targetCandidate, pool, excluded, matching.Options{TopN: s.topN})
	if err != nil {
		if errors.Is(err, matching.ErrNoAttributes) {
			return nil, apperrors.ErrNoAttributes
		}
		return nil, err
	}

	results := make([]MatchSuggestion, 0, len(ranked))
	for _, result := range ranked {
		suggestion := MatchSuggestion{
			MemberID:       result.MemberID,
			Name:           result.Name,
			Score:          result.Score,
			MatchReason:    result.MatchReason,
			SharedTags:     result.SharedTagNames,
			MatchingTagIDs: result.MatchingTagIDs,
		}
		if member, ok := byID[result.MemberID]; ok {
			suggestion.CompanyName = member.CompanyName
			suggestion.Tags = member.Tags
		}
		results = append(results, suggestion)
	}

	quota := MonthlyQuota{
		MemberID: target.ID,
		Quota:    target.MonthlyIntroQuota,
		Used:     target.IntrosUsedThisMonth,
	}

	return &MatchSuggestions{
		TargetID:       target.ID,
		TargetQuota:    quota,
		QuotaExhausted: quota.Exhausted(),
		Results:        results,
	}, nil
}

// pairedMemberIDs collects every member already paired with the target via an
// introduction row of any status, declined included. Re-introducing such a
// pair is an explicit manual action, never an automatic suggestion.
func (s *MatchService) pairedMemberIDs(ctx context.Context, targetID string) (map[string]struct{}, error) {
	var intros []models.Introduction
	err := s.db.WithContext(ctx).
		Select("member_a_id", "member_b_id").
		Where("member_a_id = ? OR member_b_id = ?", targetID, targetID).
		Find(&intros).Error
	if err != nil {
		return nil, err
	}

	paired := make(map[string]struct{}, len(intros))
	for i := range intros {
		if other := intros[i].OtherMember(targetID); other != "" {
			paired[other] = struct{}{}
		}
	}
	return paired, nil
}

func tagRefs(tags []models.Tag) []matching.TagRef {
	refs := make([]matching.TagRef, 0, len(tags))
	for _, tag := range tags {
		refs = append(refs, matching.TagRef{ID: tag.ID, Name: tag.Name, Category: tag.Category})
	}
	return refs
}

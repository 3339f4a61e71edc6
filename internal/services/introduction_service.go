package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/models"
	apperrors "github.com/clubworks/atrium/pkg/errors"
	"github.com/clubworks/atrium/pkg/metrics"
)

var (
	// ErrIntroductionNotFound indicates the requested introduction does not exist.
	ErrIntroductionNotFound = errors.New("introduction service: introduction not found")
)

// Lifecycle events accepted by Transition.
const (
	IntroEventApprove  = "approve"
	IntroEventMarkSent = "mark-sent"
	IntroEventAccept   = "accept"
	IntroEventDecline  = "decline"
	IntroEventComplete = "complete"
)

// introTransition describes one edge of the lifecycle state machine.
type introTransition struct {
	from map[string]bool
	to   string
}

// The transition table. Completed and declined appear in no from-set: they
// are terminal.
var introTransitions = map[string]introTransition{
	IntroEventApprove: {
		from: map[string]bool{models.IntroStatusSuggested: true},
		to:   models.IntroStatusApproved,
	},
	IntroEventMarkSent: {
		from: map[string]bool{models.IntroStatusApproved: true},
		to:   models.IntroStatusSent,
	},
	IntroEventAccept: {
		from: map[string]bool{models.IntroStatusSent: true},
		to:   models.IntroStatusAccepted,
	},
	IntroEventDecline: {
		from: map[string]bool{
			models.IntroStatusSuggested: true,
			models.IntroStatusApproved:  true,
			models.IntroStatusSent:      true,
			models.IntroStatusAccepted:  true,
		},
		to: models.IntroStatusDeclined,
	},
	IntroEventComplete: {
		from: map[string]bool{models.IntroStatusAccepted: true},
		to:   models.IntroStatusCompleted,
	},
}

// IntroductionService owns creation and the lifecycle of introduction rows.
// All writes go through it; status is never mutated elsewhere.
type IntroductionService struct {
	db  *gorm.DB
	now func() time.Time
}

// IntroductionServiceOption customises the service.
type IntroductionServiceOption func(*IntroductionService)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) IntroductionServiceOption {
	return func(s *IntroductionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewIntroductionService constructs an introduction service once a database
// handle is supplied.
func NewIntroductionService(db *gorm.DB, opts ...IntroductionServiceOption) (*IntroductionService, error) {
	if db == nil {
		return nil, errors.New("introduction service: db is required")
	}
	s := &IntroductionService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateIntroductionInput captures the fields accepted at creation. Score,
// reason and tags are present for scorer-originated introductions and may be
// omitted for manual ones.
type CreateIntroductionInput struct {
	MemberAID string
	MemberBID string

	MatchScore   *float64
	MatchReason  string
	MatchingTags []string

	EventID     *string
	RequestedBy *string
}

// Create persists a new introduction in the suggested state.
//
// The two member identifiers are stored in canonical order regardless of the
// order supplied. Creation fails with ErrDuplicatePair when a non-declined
// introduction already exists for the unordered pair; any number of declined
// rows may precede a new one. The duplicate check and insert run in one
// transaction, with the partial unique index as the backstop under concurrent
// creation.
func (s *IntroductionService) Create(ctx context.Context, input CreateIntroductionInput) (*models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	memberA := strings.TrimSpace(input.MemberAID)
	memberB := strings.TrimSpace(input.MemberBID)
	if memberA == "" || memberB == "" {
		return nil, apperrors.NewBadRequest("both member ids are required")
	}
	if memberA == memberB {
		return nil, apperrors.NewBadRequest("an introduction requires two distinct members")
	}
	if input.MatchScore != nil && (*input.MatchScore < 0 || *input.MatchScore > 1) {
		return nil, apperrors.NewBadRequest("match score must be between 0 and 1")
	}

	memberA, memberB = models.OrderPair(memberA, memberB)

	intro := models.Introduction{
		MemberAID:    memberA,
		MemberBID:    memberB,
		Status:       models.IntroStatusSuggested,
		MatchScore:   input.MatchScore,
		MatchReason:  strings.TrimSpace(input.MatchReason),
		MatchingTags: datatypes.NewJSONSlice(input.MatchingTags),
		EventID:      input.EventID,
		RequestedBy:  input.RequestedBy,
		SuggestedAt:  s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var memberCount int64
		if err := tx.Model(&models.Member{}).Where("id IN ?", []string{memberA, memberB}).Count(&memberCount).Error; err != nil {
			return err
		}
		if memberCount != 2 {
			return ErrMemberNotFound
		}

		var open int64
		err := tx.Model(&models.Introduction{}).
			Where("member_a_id = ? AND member_b_id = ? AND status <> ?", memberA, memberB, models.IntroStatusDeclined).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return apperrors.ErrDuplicatePair
		}

		if err := tx.Create(&intro).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrDuplicatePair
			}
			return err
		}

		// Advisory quota consumption for both sides. The monthly reset job
		// zeroes the counter again.
		return tx.Model(&models.Member{}).
			Where("id IN ?", []string{memberA, memberB}).
			UpdateColumn("intros_used_this_month", gorm.Expr("intros_used_this_month + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	origin := "manual"
	if input.MatchScore != nil {
		origin = "scored"
	}
	metrics.IntroductionsCreated.WithLabelValues(origin).Inc()

	return &intro, nil
}

// Get retrieves an introduction with both members preloaded.
func (s *IntroductionService) Get(ctx context.Context, id string) (*models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("introduction service: id is required")
	}

	var intro models.Introduction
	err := s.db.WithContext(ctx).
		Preload("MemberA").
		Preload("MemberB").
		First(&intro, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntroductionNotFound
		}
		return nil, err
	}
	return &intro, nil
}

// ListInvolving returns every introduction involving the member, newest first.
func (s *IntroductionService) ListInvolving(ctx context.Context, memberID string) ([]models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, errors.New("introduction service: member id is required")
	}

	var intros []models.Introduction
	err := s.db.WithContext(ctx).
		Where("member_a_id = ? OR member_b_id = ?", memberID, memberID).
		Order("suggested_at DESC").
		Find(&intros).Error
	if err != nil {
		return nil, err
	}
	return intros, nil
}

// List returns all introductions, optionally filtered by status, newest first.
func (s *IntroductionService) List(ctx context.Context, status string) ([]models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	q := s.db.WithContext(ctx).
		Preload("MemberA").
		Preload("MemberB").
		Order("suggested_at DESC")

	status = strings.TrimSpace(status)
	if status != "" {
		if !models.ValidIntroStatus(status) {
			return nil, apperrors.NewBadRequest("unknown introduction status " + status)
		}
		q = q.Where("status = ?", status)
	}

	var intros []models.Introduction
	if err := q.Find(&intros).Error; err != nil {
		return nil, err
	}
	return intros, nil
}

// Approve moves a suggested introduction to approved, recording the approver.
func (s *IntroductionService) Approve(ctx context.Context, id, approverID string) (*models.Introduction, error) {
	approverID = strings.TrimSpace(approverID)
	var approvedBy *string
	if approverID != "" {
		approvedBy = &approverID
	}
	return s.transition(ctx, id, IntroEventApprove, func(now time.Time, updates map[string]any) {
		updates["approved_at"] = now
		updates["approved_by"] = approvedBy
	})
}

// MarkSent records that the introduction email went out.
func (s *IntroductionService) MarkSent(ctx context.Context, id string) (*models.Introduction, error) {
	return s.transition(ctx, id, IntroEventMarkSent, func(now time.Time, updates map[string]any) {
		updates["sent_at"] = now
	})
}

// Accept records that both members accepted the introduction.
func (s *IntroductionService) Accept(ctx context.Context, id string) (*models.Introduction, error) {
	return s.transition(ctx, id, IntroEventAccept, func(now time.Time, updates map[string]any) {
		updates["accepted_at"] = now
	})
}

// Decline moves any non-terminal introduction to the declined terminal state.
func (s *IntroductionService) Decline(ctx context.Context, id string) (*models.Introduction, error) {
	return s.transition(ctx, id, IntroEventDecline, nil)
}

// Complete closes an accepted introduction; outcome fields become editable
// afterwards via UpdateOutcome.
func (s *IntroductionService) Complete(ctx context.Context, id string) (*models.Introduction, error) {
	return s.transition(ctx, id, IntroEventComplete, nil)
}

// transition executes one lifecycle event with a compare-and-swap on status:
// the row is only written when its status still matches the one the decision
// was made against, so two concurrent calls cannot both advance. The loser
// re-reads and reports an InvalidTransition naming the state it found.
func (s *IntroductionService) transition(ctx context.Context, id, event string, stamp func(time.Time, map[string]any)) (*models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("introduction service: id is required")
	}

	rule, ok := introTransitions[event]
	if !ok {
		return nil, apperrors.NewBadRequest("unknown lifecycle event " + event)
	}

	intro, err := s.Get(ctx, id)
	if err != nil {
		metrics.LifecycleTransitions.WithLabelValues(event, "error").Inc()
		return nil, err
	}

	if !rule.from[intro.Status] {
		metrics.LifecycleTransitions.WithLabelValues(event, "invalid").Inc()
		return nil, apperrors.NewInvalidTransition(intro.Status, event)
	}

	now := s.now().UTC()
	updates := map[string]any{"status": rule.to}
	if stamp != nil {
		stamp(now, updates)
	}

	res := s.db.WithContext(ctx).
		Model(&models.Introduction{}).
		Where("id = ? AND status = ?", id, intro.Status).
		Updates(updates)
	if res.Error != nil {
		metrics.LifecycleTransitions.WithLabelValues(event, "error").Inc()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: someone else advanced the row first. Report against
		// the state they left behind.
		current, err := s.Get(ctx, id)
		if err != nil {
			metrics.LifecycleTransitions.WithLabelValues(event, "error").Inc()
			return nil, err
		}
		metrics.LifecycleTransitions.WithLabelValues(event, "invalid").Inc()
		return nil, apperrors.NewInvalidTransition(current.Status, event)
	}

	metrics.LifecycleTransitions.WithLabelValues(event, "ok").Inc()
	return s.Get(ctx, id)
}

// OutcomeInput describes outcome field updates. A nil pointer leaves the field
// unchanged.
type OutcomeInput struct {
	Outcome             *string
	BusinessConverted   *bool
	EstimatedValuePence *int64
}

// UpdateOutcome edits the outcome fields of a completed introduction. Outcome
// edits are plain data updates and may be repeated; they are not lifecycle
// transitions.
func (s *IntroductionService) UpdateOutcome(ctx context.Context, id string, input OutcomeInput) (*models.Introduction, error) {
	if s == nil {
		return nil, errors.New("introduction service: service not initialised")
	}
	ctx = ensuredContext(ctx)

	intro, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if intro.Status != models.IntroStatusCompleted {
		return nil, apperrors.ErrInvalidTransition.WithMessage(
			"outcome can only be recorded once the introduction is completed, current status is " + intro.Status)
	}

	updates := map[string]any{}
	if input.Outcome != nil {
		updates["outcome"] = input.Outcome
	}
	if input.BusinessConverted != nil {
		updates["business_converted"] = *input.BusinessConverted
	}
	if input.EstimatedValuePence != nil {
		updates["estimated_value_pence"] = input.EstimatedValuePence
	}
	if len(updates) == 0 {
		return intro, nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.Introduction{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

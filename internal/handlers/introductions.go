package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/services"
	appErrors "github.com/clubworks/atrium/pkg/errors"
	"github.com/clubworks/atrium/pkg/response"
)

// IntroductionHandler exposes introduction creation, listing and the
// lifecycle endpoints.
type IntroductionHandler struct {
	intros *services.IntroductionService
}

// NewIntroductionHandler constructs an introduction handler.
func NewIntroductionHandler(db *gorm.DB, opts ...services.IntroductionServiceOption) (*IntroductionHandler, error) {
	intros, err := services.NewIntroductionService(db, opts...)
	if err != nil {
		return nil, err
	}
	return &IntroductionHandler{intros: intros}, nil
}

type createIntroductionRequest struct {
	MemberAID    string   `json:"member_a_id" binding:"required"`
	MemberBID    string   `json:"member_b_id" binding:"required"`
	MatchScore   *float64 `json:"match_score"`
	MatchReason  string   `json:"match_reason"`
	MatchingTags []string `json:"matching_tags"`
	EventID      *string  `json:"event_id"`
	RequestedBy  *string  `json:"requested_by"`
}

// Create records a new introduction in the suggested state.
func (h *IntroductionHandler) Create(c *gin.Context) {
	var req createIntroductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("member_a_id and member_b_id are required"))
		return
	}

	intro, err := h.intros.Create(c.Request.Context(), services.CreateIntroductionInput{
		MemberAID:    req.MemberAID,
		MemberBID:    req.MemberBID,
		MatchScore:   req.MatchScore,
		MatchReason:  req.MatchReason,
		MatchingTags: req.MatchingTags,
		EventID:      req.EventID,
		RequestedBy:  req.RequestedBy,
	})
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("One or both members not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, intro)
}

// List returns introductions, optionally filtered by status.
func (h *IntroductionHandler) List(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))

	intros, err := h.intros.List(c.Request.Context(), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, intros)
}

// Get returns one introduction with both members preloaded.
func (h *IntroductionHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	intro, err := h.intros.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrIntroductionNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Introduction not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, intro)
}

// ListForMember returns every introduction involving the member.
func (h *IntroductionHandler) ListForMember(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))

	intros, err := h.intros.ListInvolving(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, intros)
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by"`
}

// Approve moves a suggested introduction to approved.
func (h *IntroductionHandler) Approve(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req approveRequest
	// Body is optional; an empty approver is permitted.
	_ = c.ShouldBindJSON(&req)

	intro, err := h.intros.Approve(c.Request.Context(), id, req.ApprovedBy)
	h.respondTransition(c, intro, err)
}

// MarkSent records that the introduction email went out.
func (h *IntroductionHandler) MarkSent(c *gin.Context) {
	intro, err := h.intros.MarkSent(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	h.respondTransition(c, intro, err)
}

// Accept records that both members accepted.
func (h *IntroductionHandler) Accept(c *gin.Context) {
	intro, err := h.intros.Accept(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	h.respondTransition(c, intro, err)
}

// Decline moves the introduction to the declined terminal state.
func (h *IntroductionHandler) Decline(c *gin.Context) {
	intro, err := h.intros.Decline(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	h.respondTransition(c, intro, err)
}

// Complete closes an accepted introduction.
func (h *IntroductionHandler) Complete(c *gin.Context) {
	intro, err := h.intros.Complete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	h.respondTransition(c, intro, err)
}

type outcomeRequest struct {
	Outcome             *string `json:"outcome"`
	BusinessConverted   *bool   `json:"business_converted"`
	EstimatedValuePence *int64  `json:"estimated_value_pence"`
}

// UpdateOutcome edits the outcome fields of a completed introduction.
func (h *IntroductionHandler) UpdateOutcome(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid outcome payload"))
		return
	}

	intro, err := h.intros.UpdateOutcome(c.Request.Context(), id, services.OutcomeInput{
		Outcome:             req.Outcome,
		BusinessConverted:   req.BusinessConverted,
		EstimatedValuePence: req.EstimatedValuePence,
	})
	h.respondTransition(c, intro, err)
}

func (h *IntroductionHandler) respondTransition(c *gin.Context, intro any, err error) {
	if err != nil {
		if errors.Is(err, services.ErrIntroductionNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Introduction not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, intro)
}

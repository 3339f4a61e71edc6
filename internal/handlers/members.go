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

// MemberHandler exposes HTTP endpoints for the member directory.
type MemberHandler struct {
	members *services.MemberService
}

// NewMemberHandler constructs a member handler.
func NewMemberHandler(db *gorm.DB) (*MemberHandler, error) {
	members, err := services.NewMemberService(db)
	if err != nil {
		return nil, err
	}
	return &MemberHandler{members: members}, nil
}

// List returns the active member directory with tags attached.
func (h *MemberHandler) List(c *gin.Context) {
	members, err := h.members.ListActiveWithTags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// Get returns a single member with tags attached.
func (h *MemberHandler) Get(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	member, err := h.members.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Member not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// Quota reports the member's monthly introduction allowance and usage.
func (h *MemberHandler) Quota(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	quota, err := h.members.Quota(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Member not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"member_id": quota.MemberID,
		"quota":     quota.Quota,
		"used":      quota.Used,
		"exhausted": quota.Exhausted(),
	})
}

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

// TagHandler exposes HTTP endpoints for the tag vocabulary and member
// tag assignments.
type TagHandler struct {
	tags *services.TagService
}

// NewTagHandler constructs a tag handler.
func NewTagHandler(db *gorm.DB) (*TagHandler, error) {
	tags, err := services.NewTagService(db)
	if err != nil {
		return nil, err
	}
	return &TagHandler{tags: tags}, nil
}

// List returns the tag vocabulary, optionally filtered by category.
func (h *TagHandler) List(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))

	tags, err := h.tags.List(c.Request.Context(), category)
	if err != nil {
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}
	response.Success(c, http.StatusOK, tags)
}

// ListForMember returns a member's tag assignments with tags preloaded.
func (h *TagHandler) ListForMember(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))

	assignments, err := h.tags.ListMemberTags(c.Request.Context(), memberID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, assignments)
}

type assignTagRequest struct {
	TagID string `json:"tag_id" binding:"required"`
}

// Assign attaches a tag to a member. Repeating an assignment is a no-op.
func (h *TagHandler) Assign(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))

	var req assignTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("tag_id is required"))
		return
	}

	if err := h.tags.Assign(c.Request.Context(), memberID, req.TagID); err != nil {
		if errors.Is(err, services.ErrTagNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Tag not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// Remove detaches a tag from a member.
func (h *TagHandler) Remove(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))
	tagID := strings.TrimSpace(c.Param("tagId"))

	if err := h.tags.Remove(c.Request.Context(), memberID, tagID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

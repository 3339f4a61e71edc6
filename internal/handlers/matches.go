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

// MatchHandler exposes the compatibility scorer over HTTP.
type MatchHandler struct {
	matches *services.MatchService
}

// NewMatchHandler constructs a match handler.
func NewMatchHandler(db *gorm.DB, opts ...services.MatchServiceOption) (*MatchHandler, error) {
	matches, err := services.NewMatchService(db, opts...)
	if err != nil {
		return nil, err
	}
	return &MatchHandler{matches: matches}, nil
}

// Suggest runs a fresh suggestion ranking for the member.
func (h *MatchHandler) Suggest(c *gin.Context) {
	memberID := strings.TrimSpace(c.Param("id"))

	suggestions, err := h.matches.Suggest(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			response.Error(c, appErrors.ErrNotFound.WithMessage("Member not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, suggestions)
}

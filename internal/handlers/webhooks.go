package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/services"
	appErrors "github.com/clubworks/atrium/pkg/errors"
	"github.com/clubworks/atrium/pkg/response"
	"github.com/clubworks/atrium/pkg/validator"
)

// WebhookHandler receives payment-provider callbacks. Providers deliver
// at-least-once, so every endpoint here must be idempotent.
type WebhookHandler struct {
	settlements *services.SettlementService
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(db *gorm.DB, opts ...services.SettlementServiceOption) (*WebhookHandler, error) {
	settlements, err := services.NewSettlementService(db, opts...)
	if err != nil {
		return nil, err
	}
	return &WebhookHandler{settlements: settlements}, nil
}

type paymentCompletedRequest struct {
	EventID            string `json:"event_id" validate:"required"`
	MemberID           string `json:"member_id" validate:"required"`
	PaymentReferenceID string `json:"payment_reference_id" validate:"required"`
	AmountPence        int64  `json:"amount_pence" validate:"gte=0"`
}

// PaymentCompleted settles one payment completion callback. A redelivery
// responds 200 with the booking it already settled; only genuinely rejected
// payments get an error status, which tells the provider to stop retrying.
func (h *WebhookHandler) PaymentCompleted(c *gin.Context) {
	var req paymentCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid payment payload"))
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		response.Error(c, appErrors.NewBadRequest(err.Error()))
		return
	}

	result, err := h.settlements.ReconcilePayment(c.Request.Context(), services.PaymentCompletedInput{
		EventID:            req.EventID,
		MemberID:           req.MemberID,
		PaymentReferenceID: req.PaymentReferenceID,
		AmountPence:        req.AmountPence,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, result)
}

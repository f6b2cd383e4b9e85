package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/pkg/logger"
	"github.com/finbox/payhook/pkg/xresponse"
)

// WebhookHandler handles inbound transaction webhooks
type WebhookHandler struct {
	intakeUC domain.IntakeUsecase
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(intakeUC domain.IntakeUsecase) *WebhookHandler {
	return &WebhookHandler{intakeUC: intakeUC}
}

// ReceiveTransaction accepts a transaction webhook. The contract with the
// sender is 202 for anything except a malformed payload: duplicates and
// recorded internal faults are acknowledged with a note, never a 5xx.
func (h *WebhookHandler) ReceiveTransaction(c *gin.Context) {
	var payload domain.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Error("Invalid webhook body", logger.ErrorField(err))
		xresponse.BadRequest(c, "Invalid request format")
		return
	}

	result, err := h.intakeUC.Receive(c.Request.Context(), &payload)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			xresponse.BadRequest(c, vErr.Error())
			return
		}
		// The use case acknowledges internal faults itself; anything else
		// still must not surface as a transport failure.
		result = domain.AcceptedWithNote("error recorded: " + err.Error())
	}

	c.JSON(http.StatusAccepted, result)
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	integrationapp "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Aggregator webhooks are small JSON documents
const maxWebhookPayloadSize = 65536

// WebhookProcessor handles one aggregator webhook delivery
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, hook integrationapp.PlaidWebhook) (*integrationapp.WebhookOutcome, error)
}

// WebhookHandler serves the aggregator webhook. It is called by the provider
// and does not go through the identity middleware.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// WebhookResponse is the acknowledgement sent back to the provider
type WebhookResponse struct {
	Received bool                         `json:"received"`
	Action   integrationapp.WebhookAction `json:"action,omitempty"`
	Message  string                       `json:"message,omitempty"`
}

// HandlePlaidWebhook triggers a targeted resync for transaction webhooks.
// A failed sync answers 500 so the provider redelivers; the dedup store only
// remembers deliveries that synced.
func (h *WebhookHandler) HandlePlaidWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	var hook integrationapp.PlaidWebhook
	if err := json.Unmarshal(payload, &hook); err != nil || hook.WebhookType == "" || hook.WebhookCode == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Malformed webhook payload"})
		return
	}

	ctx := c.Request.Context()
	outcome, err := h.processor.HandleWebhook(ctx, hook)
	if err != nil {
		_ = c.Error(err)
		logger.L(ctx).Error("Webhook processing failed",
			zap.String("webhook_type", hook.WebhookType),
			zap.String("webhook_code", hook.WebhookCode),
			zap.String("item_id", hook.ItemID),
			zap.Error(err),
		)
		// no internal details in the response
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Received: true,
			Message:  "Webhook received but processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received: true,
		Action:   outcome.Action,
	})
}

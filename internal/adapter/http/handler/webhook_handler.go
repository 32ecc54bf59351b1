package handler

import (
	"procure-pay/internal/adapter/http/dto"
	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"
	"procure-pay/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler ingests gateway status notifications.
type WebhookHandler struct {
	reconSvc ports.ReconciliationService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconSvc ports.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{reconSvc: reconSvc}
}

// PaymentStatus handles POST /api/v1/webhooks/payment-status.
// Duplicate deliveries of the same terminal notification return 200 with the
// current payment state, so gateway retries always converge.
func (h *WebhookHandler) PaymentStatus(c *gin.Context) {
	var req dto.WebhookNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	hint := domain.ParseGatewayStatus(req.Status)
	payment, err := h.reconSvc.Reconcile(c.Request.Context(), req.GatewayRef, hint)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

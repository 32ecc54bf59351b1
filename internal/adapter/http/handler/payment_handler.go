package handler

import (
	"time"

	"procure-pay/internal/adapter/http/dto"
	"procure-pay/internal/adapter/http/middleware"
	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"
	"procure-pay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment initiation and lookup endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// CreatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	actorID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet_id"))
		return
	}

	payment, err := h.paymentSvc.CreatePayment(c.Request.Context(), ports.CreatePaymentRequest{
		OrderID:        req.OrderID,
		WalletID:       walletID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         domain.PaymentMethod(req.Method),
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        actorID.(string),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentResponse(payment))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentSvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:         p.ID.String(),
		OrderID:    p.OrderID,
		WalletID:   p.WalletID.String(),
		Method:     string(p.Method),
		GatewayRef: p.GatewayRef,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     string(p.Status),
		Revision:   p.Revision,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		processed := p.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &processed
	}
	return resp
}

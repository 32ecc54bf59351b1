package handler

import (
	"strconv"
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

// WalletHandler handles wallet management endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	actorID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), req.AccountID, req.Currency, req.OpeningBalance, actorID.(string))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// Topup handles POST /api/v1/wallets/:id/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	actorID, ok := c.Get(middleware.CtxAccountID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	var req dto.TopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	tx, err := h.walletSvc.Topup(c.Request.Context(), ports.TopupRequest{
		WalletID:    walletID,
		Amount:      req.Amount,
		Description: req.Description,
		ActorID:     actorID.(string),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(tx))
}

// GetBalance handles GET /api/v1/wallets/:id/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// ListTransactions handles GET /api/v1/wallets/:id/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, apperror.Validation("invalid limit"))
			return
		}
	}

	txs, err := h.walletSvc.ListTransactions(c.Request.Context(), walletID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		items = append(items, toTransactionResponse(&txs[i]))
	}

	response.OK(c, dto.TransactionListResponse{Items: items, Count: len(items)})
}

// CheckIntegrity handles GET /api/v1/wallets/:id/integrity.
func (h *WalletHandler) CheckIntegrity(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet id"))
		return
	}

	report, err := h.walletSvc.CheckIntegrity(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, report)
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:        w.ID.String(),
		AccountID: w.AccountID,
		Currency:  w.Currency,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(t *domain.WalletTransaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:           t.ID.String(),
		WalletID:     t.WalletID.String(),
		Kind:         string(t.Kind),
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
	if t.PaymentID != nil {
		id := t.PaymentID.String()
		resp.PaymentID = &id
	}
	return resp
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"procure-pay/internal/adapter/http/dto"
	"procure-pay/internal/adapter/http/middleware"
	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/internal/core/ports/mocks"
	"procure-pay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func settledPayment(gatewayRef string) *domain.Payment {
	ref := gatewayRef
	now := time.Now()
	return &domain.Payment{
		ID:             uuid.New(),
		OrderID:        "ord-1001",
		WalletID:       uuid.New(),
		Method:         domain.PaymentMethodCreditCard,
		GatewayRef:     &ref,
		Amount:         25000,
		Currency:       "USD",
		Status:         domain.PaymentStatusSettled,
		Revision:       4,
		IdempotencyKey: "idem-1001",
		CreatedAt:      now,
		UpdatedAt:      now,
		ProcessedAt:    &now,
	}
}

// --- Webhook Handler Tests ---

func TestWebhookPaymentStatus_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRecon := mocks.NewMockReconciliationService(ctrl)
	h := NewWebhookHandler(mockRecon)

	payment := settledPayment("gw_abc")
	mockRecon.EXPECT().
		Reconcile(gomock.Any(), "gw_abc", domain.GatewayStatusConfirmed).
		Return(payment, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/webhooks/payment-status", dto.WebhookNotification{
		GatewayRef: "gw_abc",
		Status:     "CONFIRMED",
	})

	h.PaymentStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"SETTLED"`)
	assert.Contains(t, w.Body.String(), payment.ID.String())
}

func TestWebhookPaymentStatus_UnparseableHintPassedAsUnknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRecon := mocks.NewMockReconciliationService(ctrl)
	h := NewWebhookHandler(mockRecon)

	mockRecon.EXPECT().
		Reconcile(gomock.Any(), "gw_abc", domain.GatewayStatusUnknown).
		Return(settledPayment("gw_abc"), nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/webhooks/payment-status", dto.WebhookNotification{
		GatewayRef: "gw_abc",
		Status:     "something-new",
	})

	h.PaymentStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookPaymentStatus_MissingGatewayRef(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWebhookHandler(mocks.NewMockReconciliationService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/webhooks/payment-status", gin.H{"status": "CONFIRMED"})

	h.PaymentStatus(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "WLT_002")
}

func TestWebhookPaymentStatus_UnknownPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRecon := mocks.NewMockReconciliationService(ctrl)
	h := NewWebhookHandler(mockRecon)

	mockRecon.EXPECT().
		Reconcile(gomock.Any(), "gw_missing", domain.GatewayStatusUnknown).
		Return(nil, apperror.ErrUnknownPayment("gw_missing"))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/webhooks/payment-status", dto.WebhookNotification{
		GatewayRef: "gw_missing",
	})

	h.PaymentStatus(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RCN_001")
}

func TestWebhookPaymentStatus_VerifierUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRecon := mocks.NewMockReconciliationService(ctrl)
	h := NewWebhookHandler(mockRecon)

	mockRecon.EXPECT().
		Reconcile(gomock.Any(), "gw_abc", domain.GatewayStatusUnknown).
		Return(nil, apperror.ErrVerificationUnavailable(assert.AnError))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/webhooks/payment-status", dto.WebhookNotification{
		GatewayRef: "gw_abc",
	})

	h.PaymentStatus(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "RCN_002")
}

// --- Payment Handler Tests ---

func TestCreatePayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayments := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayments)

	walletID := uuid.New()
	payment := settledPayment("gw_abc")
	payment.Status = domain.PaymentStatusPending
	payment.WalletID = walletID

	mockPayments.EXPECT().
		CreatePayment(gomock.Any(), ports.CreatePaymentRequest{
			OrderID:        "ord-1001",
			WalletID:       walletID,
			Amount:         25000,
			Currency:       "USD",
			Method:         domain.PaymentMethodCreditCard,
			IdempotencyKey: "idem-1001",
			ActorID:        "ops-user",
		}).
		Return(payment, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/payments", dto.CreatePaymentRequest{
		OrderID:        "ord-1001",
		WalletID:       walletID.String(),
		Amount:         25000,
		Currency:       "USD",
		Method:         "CREDIT_CARD",
		IdempotencyKey: "idem-1001",
	})
	c.Set(middleware.CtxAccountID, "ops-user")

	h.CreatePayment(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PENDING"`)
}

func TestCreatePayment_MissingAuthContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPaymentHandler(mocks.NewMockPaymentService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/payments", dto.CreatePaymentRequest{})

	h.CreatePayment(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestCreatePayment_InvalidMethod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPaymentHandler(mocks.NewMockPaymentService(ctrl))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/payments", dto.CreatePaymentRequest{
		OrderID:        "ord-1001",
		WalletID:       uuid.New().String(),
		Amount:         25000,
		Currency:       "USD",
		Method:         "CASH",
		IdempotencyKey: "idem-1001",
	})
	c.Set(middleware.CtxAccountID, "ops-user")

	h.CreatePayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePayment_DuplicateOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayments := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayments)

	mockPayments.EXPECT().
		CreatePayment(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrDuplicatePayment("ord-1001"))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/payments", dto.CreatePaymentRequest{
		OrderID:        "ord-1001",
		WalletID:       uuid.New().String(),
		Amount:         25000,
		Currency:       "USD",
		Method:         "CREDIT_CARD",
		IdempotencyKey: "idem-1001",
	})
	c.Set(middleware.CtxAccountID, "ops-user")

	h.CreatePayment(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_001")
}

func TestGetPayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockPayments := mocks.NewMockPaymentService(ctrl)
	h := NewPaymentHandler(mockPayments)

	payment := settledPayment("gw_abc")
	mockPayments.EXPECT().GetPayment(gomock.Any(), payment.ID).Return(payment, nil)

	w, c := jsonRequest(t, http.MethodGet, "/api/v1/payments/"+payment.ID.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: payment.ID.String()}}

	h.GetPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), payment.ID.String())
}

func TestGetPayment_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewPaymentHandler(mocks.NewMockPaymentService(ctrl))

	w, c := jsonRequest(t, http.MethodGet, "/api/v1/payments/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.GetPayment(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	wallet := &domain.Wallet{
		ID:        uuid.New(),
		AccountID: "acct-42",
		Currency:  "USD",
		Balance:   10000,
		CreatedAt: time.Now(),
	}
	mockWallets.EXPECT().
		CreateWallet(gomock.Any(), "acct-42", "USD", int64(10000), "ops-user").
		Return(wallet, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallets", dto.CreateWalletRequest{
		AccountID:      "acct-42",
		Currency:       "USD",
		OpeningBalance: 10000,
	})
	c.Set(middleware.CtxAccountID, "ops-user")

	h.CreateWallet(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":10000`)
}

func TestCreateWallet_DuplicateAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	mockWallets.EXPECT().
		CreateWallet(gomock.Any(), "acct-42", "USD", int64(0), "ops-user").
		Return(nil, apperror.ErrWalletExists("acct-42"))

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallets", dto.CreateWalletRequest{
		AccountID: "acct-42",
		Currency:  "USD",
	})
	c.Set(middleware.CtxAccountID, "ops-user")

	h.CreateWallet(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PAY_003")
}

func TestTopup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	walletID := uuid.New()
	tx := &domain.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         domain.EntryKindTopup,
		Amount:       5000,
		BalanceAfter: 15000,
		Description:  "Quarterly budget",
		CreatedAt:    time.Now(),
	}
	mockWallets.EXPECT().
		Topup(gomock.Any(), ports.TopupRequest{
			WalletID:    walletID,
			Amount:      5000,
			Description: "Quarterly budget",
			ActorID:     "ops-user",
		}).
		Return(tx, nil)

	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallets/"+walletID.String()+"/topup", dto.TopupRequest{
		Amount:      5000,
		Description: "Quarterly budget",
	})
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}
	c.Set(middleware.CtxAccountID, "ops-user")

	h.Topup(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"balance_after":15000`)
}

func TestTopup_InsufficientValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWalletService(ctrl))

	walletID := uuid.New()
	w, c := jsonRequest(t, http.MethodPost, "/api/v1/wallets/"+walletID.String()+"/topup", gin.H{"amount": -5})
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}
	c.Set(middleware.CtxAccountID, "ops-user")

	h.Topup(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	wallet := &domain.Wallet{ID: uuid.New(), AccountID: "acct-42", Currency: "USD", Balance: 7500, CreatedAt: time.Now()}
	mockWallets.EXPECT().GetWallet(gomock.Any(), wallet.ID).Return(wallet, nil)

	w, c := jsonRequest(t, http.MethodGet, "/api/v1/wallets/"+wallet.ID.String()+"/balance", nil)
	c.Params = gin.Params{{Key: "id", Value: wallet.ID.String()}}

	h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":7500`)
}

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	walletID := uuid.New()
	paymentID := uuid.New()
	txs := []domain.WalletTransaction{
		{ID: uuid.New(), WalletID: walletID, Kind: domain.EntryKindSettlement, Amount: 25000, BalanceAfter: 35000, PaymentID: &paymentID, CreatedAt: time.Now()},
		{ID: uuid.New(), WalletID: walletID, Kind: domain.EntryKindTopup, Amount: 10000, BalanceAfter: 10000, CreatedAt: time.Now()},
	}
	mockWallets.EXPECT().ListTransactions(gomock.Any(), walletID, 10).Return(txs, nil)

	w, c := jsonRequest(t, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/transactions?limit=10", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
	assert.Contains(t, w.Body.String(), paymentID.String())
}

func TestListTransactions_BadLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewWalletHandler(mocks.NewMockWalletService(ctrl))

	walletID := uuid.New()
	w, c := jsonRequest(t, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/transactions?limit=abc", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.ListTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckIntegrity_ReportsDivergence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallets := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(mockWallets)

	walletID := uuid.New()
	mockWallets.EXPECT().CheckIntegrity(gomock.Any(), walletID).Return(&ports.LedgerIntegrity{
		WalletID:   walletID,
		Balance:    10000,
		EntrySum:   9500,
		Consistent: false,
	}, nil)

	w, c := jsonRequest(t, http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/integrity", nil)
	c.Params = gin.Params{{Key: "id", Value: walletID.String()}}

	h.CheckIntegrity(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"consistent":false`)
}

// --- Router Tests ---

func TestRouter_HealthRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := SetupRouter(RouterDeps{
		ReconSvc:   mocks.NewMockReconciliationService(ctrl),
		PaymentSvc: mocks.NewMockPaymentService(ctrl),
		WalletSvc:  mocks.NewMockWalletService(ctrl),
		TokenSvc:   mocks.NewMockTokenService(ctrl),
		Flags:      FeatureFlags{PaymentsGateway: true, WalletBasic: true},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestRouter_WebhookFeatureGate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := SetupRouter(RouterDeps{
		ReconSvc:   mocks.NewMockReconciliationService(ctrl),
		PaymentSvc: mocks.NewMockPaymentService(ctrl),
		WalletSvc:  mocks.NewMockWalletService(ctrl),
		TokenSvc:   mocks.NewMockTokenService(ctrl),
		Flags:      FeatureFlags{PaymentsGateway: false, WalletBasic: true},
	})

	body, _ := json.Marshal(dto.WebhookNotification{GatewayRef: "gw_abc"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment-status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FLAG_001")
}

func TestRouter_PaymentsRequireAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	r := SetupRouter(RouterDeps{
		ReconSvc:   mocks.NewMockReconciliationService(ctrl),
		PaymentSvc: mocks.NewMockPaymentService(ctrl),
		WalletSvc:  mocks.NewMockWalletService(ctrl),
		TokenSvc:   mockToken,
		Flags:      FeatureFlags{PaymentsGateway: true, WalletBasic: true},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_001")
}

func TestRouter_WalletWriteGatedReadOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockToken := mocks.NewMockTokenService(ctrl)
	mockWallets := mocks.NewMockWalletService(ctrl)
	mockToken.EXPECT().Validate("tok").Return(&ports.TokenClaims{AccountID: "ops-user"}, nil).Times(2)

	walletID := uuid.New()
	mockWallets.EXPECT().GetWallet(gomock.Any(), walletID).
		Return(&domain.Wallet{ID: walletID, AccountID: "acct-42", Currency: "USD"}, nil)

	r := SetupRouter(RouterDeps{
		ReconSvc:   mocks.NewMockReconciliationService(ctrl),
		PaymentSvc: mocks.NewMockPaymentService(ctrl),
		WalletSvc:  mockWallets,
		TokenSvc:   mockToken,
		Flags:      FeatureFlags{PaymentsGateway: true, WalletBasic: false},
	})

	// Writes answer FLAG_001 while the flag is off.
	body, _ := json.Marshal(dto.TopupRequest{Amount: 5000})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallets/"+walletID.String()+"/topup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "FLAG_001")

	// Reads stay live.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+walletID.String()+"/balance", nil)
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

package dto

// WebhookNotification is the request body for gateway status notifications.
// Status is a hint only; reconciliation always re-verifies with the gateway.
type WebhookNotification struct {
	GatewayRef string `json:"gateway_ref" binding:"required,max=100"`
	Status     string `json:"status,omitempty" binding:"max=30"`
}

// CreatePaymentRequest is the request body for payment initiation.
type CreatePaymentRequest struct {
	OrderID        string `json:"order_id" binding:"required,max=100,safe_id"`
	WalletID       string `json:"wallet_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
	Method         string `json:"method" binding:"required,oneof=WALLET CREDIT_CARD BANK_TRANSFER"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=100,safe_id"`
}

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	AccountID      string `json:"account_id" binding:"required,max=100,safe_id"`
	Currency       string `json:"currency" binding:"required,len=3"`
	OpeningBalance int64  `json:"opening_balance" binding:"gte=0"`
}

// TopupRequest is the request body for a manual wallet top-up.
type TopupRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description,omitempty" binding:"max=255"`
}

// PaymentResponse is the response body for payment state.
type PaymentResponse struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	WalletID    string  `json:"wallet_id"`
	Method      string  `json:"method"`
	GatewayRef  *string `json:"gateway_ref,omitempty"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	Revision    int64   `json:"revision"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// WalletResponse is the response body for wallet state.
type WalletResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Currency  string `json:"currency"`
	Balance   int64  `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// TransactionResponse is the response body for a single ledger entry.
type TransactionResponse struct {
	ID           string  `json:"id"`
	WalletID     string  `json:"wallet_id"`
	Kind         string  `json:"kind"`
	Amount       int64   `json:"amount"`
	BalanceAfter int64   `json:"balance_after"`
	PaymentID    *string `json:"payment_id,omitempty"`
	Description  string  `json:"description,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// TransactionListResponse wraps a wallet's ledger entries.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Count int                   `json:"count"`
}

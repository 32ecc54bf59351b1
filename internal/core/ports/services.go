package ports

import (
	"context"
	"time"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
)

// GatewayClient is the outbound adapter to the payment gateway. The gateway is
// an opaque oracle: Verify returns its current authoritative status and is the
// only input trusted to move a payment's state.
type GatewayClient interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Verify(ctx context.Context, gatewayRef string) (domain.GatewayStatus, error)
}

// ChargeRequest holds input for initiating a gateway charge.
type ChargeRequest struct {
	OrderID  string
	Amount   int64
	Currency string
	Method   domain.PaymentMethod
}

// ChargeResult is the gateway's answer to a charge attempt.
type ChargeResult struct {
	GatewayRef  string
	Status      domain.GatewayStatus
	RawResponse string
}

// LedgerEntry is a request to apply one signed balance change to a wallet.
type LedgerEntry struct {
	WalletID    uuid.UUID
	Kind        domain.EntryKind
	Amount      int64 // signed, minor units
	PaymentID   *uuid.UUID
	Description string
	ActorID     string
}

// WalletLedger applies ledger entries atomically and exactly once per
// (wallet, causing payment, kind).
type WalletLedger interface {
	// ApplyEntry returns the created transaction, or the pre-existing one
	// unchanged when the entry's idempotency key was already applied.
	ApplyEntry(ctx context.Context, entry LedgerEntry) (*domain.WalletTransaction, error)
	HasEntry(ctx context.Context, walletID, paymentID uuid.UUID, kind domain.EntryKind) (bool, error)
}

// ReconciliationService ingests gateway notifications and advances payment
// state. Webhook deliveries and the scheduled sweep share this entry point.
type ReconciliationService interface {
	Reconcile(ctx context.Context, gatewayRef string, hint domain.GatewayStatus) (*domain.Payment, error)
}

// CreatePaymentRequest holds validated input for payment initiation.
type CreatePaymentRequest struct {
	OrderID        string
	WalletID       uuid.UUID
	Amount         int64
	Currency       string
	Method         domain.PaymentMethod
	IdempotencyKey string
	ActorID        string
}

// PaymentService defines payment initiation and lookup.
type PaymentService interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// TopupRequest holds validated input for a wallet top-up.
type TopupRequest struct {
	WalletID    uuid.UUID
	Amount      int64
	Description string
	ActorID     string
}

// LedgerIntegrity reports the cached balance against the recomputed entry sum.
type LedgerIntegrity struct {
	WalletID   uuid.UUID `json:"wallet_id"`
	Balance    int64     `json:"balance"`
	EntrySum   int64     `json:"entry_sum"`
	Consistent bool      `json:"consistent"`
}

// WalletService defines wallet management business logic.
type WalletService interface {
	CreateWallet(ctx context.Context, accountID, currency string, openingBalance int64, actorID string) (*domain.Wallet, error)
	Topup(ctx context.Context, req TopupRequest) (*domain.WalletTransaction, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
	CheckIntegrity(ctx context.Context, walletID uuid.UUID) (*LedgerIntegrity, error)
}

// AuditService is the write-only sink for audited actions. Recording is
// fire-and-forget: failures are logged, never propagated.
type AuditService interface {
	Record(ctx context.Context, actorID, entityType, entityID string, action domain.AuditAction, metadata map[string]any)
}

// TokenService handles JWT token operations for the ops API.
type TokenService interface {
	Generate(accountID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID string
}

// ReconCache is a best-effort fast path for duplicate webhook deliveries:
// terminal reconciliation results keyed by gateway reference. Correctness
// never depends on it; the ledger idempotency key does the real work.
type ReconCache interface {
	Get(ctx context.Context, gatewayRef string) ([]byte, error) // Returns cached payment JSON or nil
	Set(ctx context.Context, gatewayRef string, payload []byte, ttl time.Duration) error
}

package ports

import (
	"context"
	"time"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepository defines persistence operations for payments.
// Payments are mutated only through UpdateStatusChecked; rows are never deleted.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	GetActiveByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
	// UpdateStatusChecked writes status and bumps the revision counter iff the
	// stored revision still equals expectedRevision. Returns false when the
	// revision is stale; the caller reloads and re-derives its decision.
	UpdateStatusChecked(ctx context.Context, id uuid.UUID, expectedRevision int64, status domain.PaymentStatus) (bool, error)
	// ListUnsettled returns non-terminal payments with a gateway reference
	// last touched before olderThan, oldest first. Used by the sweep.
	ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, w *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
}

// LedgerRepository defines persistence for wallet transactions. Entries are
// append-only; there is no update or delete.
type LedgerRepository interface {
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	// GetByPayment looks up the entry keyed by (walletID, paymentID, kind)
	// inside the locked transaction. Returns nil, nil when absent.
	GetByPayment(ctx context.Context, tx pgx.Tx, walletID, paymentID uuid.UUID, kind domain.EntryKind) (*domain.WalletTransaction, error)
	// ExistsByPayment is the non-locking variant used outside a transaction.
	ExistsByPayment(ctx context.Context, walletID, paymentID uuid.UUID, kind domain.EntryKind) (bool, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error)
	// SumByWallet recomputes the balance from the entries themselves.
	SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

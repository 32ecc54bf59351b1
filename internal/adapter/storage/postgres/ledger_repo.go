package postgres

import (
	"context"
	"errors"
	"fmt"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, wallet_id, kind, amount, balance_after, payment_id, description, created_at`

// LedgerRepo implements ports.LedgerRepository. wallet_transactions carries a
// unique index on (wallet_id, payment_id, kind), so even a replay check that
// somehow races loses at the constraint, not in the data.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Insert appends a ledger entry within a transaction.
func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, kind, amount, balance_after, payment_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		entry.ID, entry.WalletID, entry.Kind, entry.Amount, entry.BalanceAfter,
		entry.PaymentID, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByPayment looks up the entry keyed by (walletID, paymentID, kind) inside
// the locked transaction.
func (r *LedgerRepo) GetByPayment(ctx context.Context, tx pgx.Tx, walletID, paymentID uuid.UUID, kind domain.EntryKind) (*domain.WalletTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_transactions
		WHERE wallet_id = $1 AND payment_id = $2 AND kind = $3`

	e := &domain.WalletTransaction{}
	err := tx.QueryRow(ctx, query, walletID, paymentID, kind).Scan(
		&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter,
		&e.PaymentID, &e.Description, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by payment: %w", err)
	}
	return e, nil
}

// ExistsByPayment is the non-locking variant used outside a transaction.
func (r *LedgerRepo) ExistsByPayment(ctx context.Context, walletID, paymentID uuid.UUID, kind domain.EntryKind) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM wallet_transactions
		WHERE wallet_id = $1 AND payment_id = $2 AND kind = $3)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, walletID, paymentID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ledger entry exists: %w", err)
	}
	return exists, nil
}

// ListByWallet returns the wallet's most recent entries, newest first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	query := `SELECT ` + entryColumns + ` FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.WalletTransaction
	for rows.Next() {
		var e domain.WalletTransaction
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter,
			&e.PaymentID, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumByWallet recomputes the balance from the entries themselves.
func (r *LedgerRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_id = $1`

	var sum int64
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

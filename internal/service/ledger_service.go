package service

import (
	"context"
	"fmt"
	"time"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"
	"procure-pay/pkg/ident"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerService implements ports.WalletLedger. Every balance change in the
// system goes through ApplyEntry; nothing else writes wallet balances.
type LedgerService struct {
	wallets    ports.WalletRepository
	entries    ports.LedgerRepository
	transactor ports.DBTransactor
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	wallets ports.WalletRepository,
	entries ports.LedgerRepository,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		wallets:    wallets,
		entries:    entries,
		transactor: transactor,
		audit:      audit,
		log:        log,
	}
}

// ApplyEntry appends one ledger entry and moves the wallet balance with it,
// atomically. When the entry carries a causing payment, (wallet, payment,
// kind) is checked under the wallet lock: a replay returns the existing entry
// and touches nothing.
func (s *LedgerService) ApplyEntry(ctx context.Context, entry ports.LedgerEntry) (*domain.WalletTransaction, error) {
	if entry.Amount == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock & get wallet
	wallet, err := s.wallets.GetByIDForUpdate(ctx, dbTx, entry.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	// Replay check under the lock, so two racing callers cannot both insert.
	if entry.PaymentID != nil {
		existing, err := s.entries.GetByPayment(ctx, dbTx, entry.WalletID, *entry.PaymentID, entry.Kind)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check replay: %w", err))
		}
		if existing != nil {
			s.log.Debug().
				Str("wallet_id", entry.WalletID.String()).
				Str("payment_id", entry.PaymentID.String()).
				Str("kind", string(entry.Kind)).
				Msg("ledger entry replayed, returning existing")
			return existing, nil
		}
	}

	newBalance := wallet.Balance + entry.Amount
	if newBalance < 0 {
		return nil, apperror.ErrInsufficientBalance()
	}

	txn := &domain.WalletTransaction{
		ID:           ident.New(),
		WalletID:     wallet.ID,
		Kind:         entry.Kind,
		Amount:       entry.Amount,
		BalanceAfter: newBalance,
		PaymentID:    entry.PaymentID,
		Description:  entry.Description,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.entries.Insert(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("insert ledger entry: %w", err))
	}
	if err := s.wallets.UpdateBalance(ctx, dbTx, wallet.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update wallet balance: %w", err))
	}

	// Commit
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	action := domain.AuditActionWalletCredit
	if entry.Amount < 0 {
		action = domain.AuditActionWalletDebit
	}
	s.audit.Record(ctx, entry.ActorID, "wallet", wallet.ID.String(), action, map[string]any{
		"entry_id":      txn.ID.String(),
		"kind":          string(entry.Kind),
		"amount":        entry.Amount,
		"balance_after": newBalance,
	})

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("kind", string(entry.Kind)).
		Int64("amount", entry.Amount).
		Int64("balance_after", newBalance).
		Msg("ledger entry applied")

	return txn, nil
}

// HasEntry reports whether the (wallet, payment, kind) idempotency key has
// already been applied. Read-only, no lock.
func (s *LedgerService) HasEntry(ctx context.Context, walletID, paymentID uuid.UUID, kind domain.EntryKind) (bool, error) {
	return s.entries.ExistsByPayment(ctx, walletID, paymentID, kind)
}

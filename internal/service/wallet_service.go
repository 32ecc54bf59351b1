package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"
	"procure-pay/pkg/ident"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultTransactionLimit = 50

// WalletSvc implements ports.WalletService. Balance changes are delegated to
// the ledger; this service never writes a balance itself.
type WalletSvc struct {
	wallets ports.WalletRepository
	entries ports.LedgerRepository
	ledger  ports.WalletLedger
	audit   ports.AuditService
	log     zerolog.Logger
}

// NewWalletService creates a new WalletSvc.
func NewWalletService(
	wallets ports.WalletRepository,
	entries ports.LedgerRepository,
	ledger ports.WalletLedger,
	audit ports.AuditService,
	log zerolog.Logger,
) *WalletSvc {
	return &WalletSvc{
		wallets: wallets,
		entries: entries,
		ledger:  ledger,
		audit:   audit,
		log:     log,
	}
}

// CreateWallet provisions a wallet for an account, at most one per account.
// An opening balance is applied as a TOPUP entry so the ledger stays the
// source of truth from the first cent.
func (s *WalletSvc) CreateWallet(ctx context.Context, accountID, currency string, openingBalance int64, actorID string) (*domain.Wallet, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, apperror.Validation("account_id is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, apperror.Validation("currency must be a 3-letter ISO code")
	}
	if openingBalance < 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if existing, err := s.wallets.GetByAccountID(ctx, accountID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check account wallet: %w", err))
	} else if existing != nil {
		return nil, apperror.ErrWalletExists(accountID)
	}

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        ident.New(),
		AccountID: accountID,
		Currency:  currency,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if openingBalance > 0 {
		txn, err := s.ledger.ApplyEntry(ctx, ports.LedgerEntry{
			WalletID:    w.ID,
			Kind:        domain.EntryKindTopup,
			Amount:      openingBalance,
			Description: "Opening balance",
			ActorID:     actorID,
		})
		if err != nil {
			return nil, err
		}
		w.Balance = txn.BalanceAfter
	}

	s.audit.Record(ctx, actorID, "wallet", w.ID.String(), domain.AuditActionWalletCreated, map[string]any{
		"account_id":      accountID,
		"currency":        currency,
		"opening_balance": openingBalance,
	})

	s.log.Info().
		Str("wallet_id", w.ID.String()).
		Str("account_id", accountID).
		Str("currency", currency).
		Msg("wallet created")

	return w, nil
}

// Topup credits the wallet with operator funds.
func (s *WalletSvc) Topup(ctx context.Context, req ports.TopupRequest) (*domain.WalletTransaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	desc := req.Description
	if desc == "" {
		desc = "Manual top-up"
	}
	return s.ledger.ApplyEntry(ctx, ports.LedgerEntry{
		WalletID:    req.WalletID,
		Kind:        domain.EntryKindTopup,
		Amount:      req.Amount,
		Description: desc,
		ActorID:     req.ActorID,
	})
}

// GetWallet returns one wallet by ID.
func (s *WalletSvc) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return w, nil
}

// ListTransactions returns the wallet's most recent ledger entries,
// newest first.
func (s *WalletSvc) ListTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if w, err := s.wallets.GetByID(ctx, walletID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	} else if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	txns, err := s.entries.ListByWallet(ctx, walletID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return txns, nil
}

// CheckIntegrity recomputes the wallet balance from the ledger and compares
// it to the cached value. A mismatch means a bug, not normal drift; it is
// logged at error so it pages.
func (s *WalletSvc) CheckIntegrity(ctx context.Context, walletID uuid.UUID) (*ports.LedgerIntegrity, error) {
	w, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	sum, err := s.entries.SumByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum ledger entries: %w", err))
	}

	report := &ports.LedgerIntegrity{
		WalletID:   walletID,
		Balance:    w.Balance,
		EntrySum:   sum,
		Consistent: w.Balance == sum,
	}
	if !report.Consistent {
		s.log.Error().
			Str("wallet_id", walletID.String()).
			Int64("balance", w.Balance).
			Int64("entry_sum", sum).
			Msg("wallet balance diverged from ledger")
	}
	return report, nil
}

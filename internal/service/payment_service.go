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

// PaymentSvc implements ports.PaymentService: initiation and lookup.
// Post-creation state changes belong to the reconciliation engine only.
type PaymentSvc struct {
	payments ports.PaymentRepository
	wallets  ports.WalletRepository
	ledger   ports.WalletLedger
	gateway  ports.GatewayClient
	audit    ports.AuditService
	log      zerolog.Logger
}

// NewPaymentService creates a new PaymentSvc.
func NewPaymentService(
	payments ports.PaymentRepository,
	wallets ports.WalletRepository,
	ledger ports.WalletLedger,
	gateway ports.GatewayClient,
	audit ports.AuditService,
	log zerolog.Logger,
) *PaymentSvc {
	return &PaymentSvc{
		payments: payments,
		wallets:  wallets,
		ledger:   ledger,
		gateway:  gateway,
		audit:    audit,
		log:      log,
	}
}

// CreatePayment initiates a payment for an order. Replaying the same
// idempotency key returns the original payment untouched. At most one
// non-terminal payment may exist per order at a time.
//
// WALLET payments settle synchronously: the funding debit and the terminal
// status land together, no gateway round trip. Gateway methods charge the
// gateway and park the payment in PENDING until reconciliation resolves it.
func (s *PaymentSvc) CreatePayment(ctx context.Context, req ports.CreatePaymentRequest) (*domain.Payment, error) {
	if err := validateCreatePayment(req); err != nil {
		return nil, err
	}

	// Idempotent replay: same key, same answer.
	if existing, err := s.payments.GetByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check idempotency key: %w", err))
	} else if existing != nil {
		s.log.Debug().
			Str("idempotency_key", req.IdempotencyKey).
			Str("payment_id", existing.ID.String()).
			Msg("payment creation replayed")
		return existing, nil
	}

	wallet, err := s.wallets.GetByID(ctx, req.WalletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if wallet.Currency != req.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	if active, err := s.payments.GetActiveByOrder(ctx, req.OrderID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check active payment: %w", err))
	} else if active != nil {
		return nil, apperror.ErrDuplicatePayment(req.OrderID)
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:             ident.New(),
		OrderID:        req.OrderID,
		WalletID:       req.WalletID,
		Method:         req.Method,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         domain.PaymentStatusPending,
		Revision:       0,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if req.Method == domain.PaymentMethodWallet {
		return s.createWalletPayment(ctx, p, req.ActorID)
	}
	return s.createGatewayPayment(ctx, p, req.ActorID)
}

// createWalletPayment funds the payment from the wallet and settles it in one
// call. The ledger's idempotency key makes a crash between the debit and the
// settle safe to re-run.
func (s *PaymentSvc) createWalletPayment(ctx context.Context, p *domain.Payment, actorID string) (*domain.Payment, error) {
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	_, err := s.ledger.ApplyEntry(ctx, ports.LedgerEntry{
		WalletID:    p.WalletID,
		Kind:        domain.EntryKindDebit,
		Amount:      -p.Amount,
		PaymentID:   &p.ID,
		Description: "Wallet payment for order " + p.OrderID,
		ActorID:     actorID,
	})
	if err != nil {
		// Funding failed; land the payment in FAILED so the order can retry.
		s.settle(ctx, p, domain.PaymentStatusFailed)
		s.audit.Record(ctx, actorID, "payment", p.ID.String(), domain.AuditActionPaymentFailed, map[string]any{
			"order_id": p.OrderID,
			"reason":   "wallet debit failed",
		})
		return nil, err
	}

	s.settle(ctx, p, domain.PaymentStatusSettled)
	s.audit.Record(ctx, actorID, "payment", p.ID.String(), domain.AuditActionPaymentSettled, map[string]any{
		"order_id": p.OrderID,
		"method":   string(p.Method),
		"amount":   p.Amount,
	})

	s.log.Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", p.OrderID).
		Int64("amount", p.Amount).
		Msg("wallet payment settled")

	return p, nil
}

func (s *PaymentSvc) createGatewayPayment(ctx context.Context, p *domain.Payment, actorID string) (*domain.Payment, error) {
	result, err := s.gateway.Charge(ctx, ports.ChargeRequest{
		OrderID:  p.OrderID,
		Amount:   p.Amount,
		Currency: p.Currency,
		Method:   p.Method,
	})
	if err != nil {
		return nil, apperror.ErrVerificationUnavailable(fmt.Errorf("gateway charge: %w", err))
	}

	p.GatewayRef = &result.GatewayRef
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	s.audit.Record(ctx, actorID, "payment", p.ID.String(), domain.AuditActionPaymentCreated, map[string]any{
		"order_id":    p.OrderID,
		"method":      string(p.Method),
		"amount":      p.Amount,
		"gateway_ref": result.GatewayRef,
	})

	s.log.Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", p.OrderID).
		Str("gateway_ref", result.GatewayRef).
		Msg("gateway payment initiated")

	return p, nil
}

// GetPayment returns one payment by ID.
func (s *PaymentSvc) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	return p, nil
}

// settle drives a freshly created PENDING payment to a terminal status. A CAS
// failure here means a concurrent writer beat us on a payment created
// milliseconds ago, which only the reconciler could do; log and move on.
func (s *PaymentSvc) settle(ctx context.Context, p *domain.Payment, status domain.PaymentStatus) {
	ok, err := s.payments.UpdateStatusChecked(ctx, p.ID, p.Revision, status)
	if err != nil || !ok {
		s.log.Error().
			Err(err).
			Bool("applied", ok).
			Str("payment_id", p.ID.String()).
			Str("status", string(status)).
			Msg("settling new wallet payment did not apply")
		return
	}
	now := time.Now().UTC()
	p.Status = status
	p.Revision++
	p.UpdatedAt = now
	p.ProcessedAt = &now
}

func validateCreatePayment(req ports.CreatePaymentRequest) error {
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return apperror.Validation("order_id is required")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return apperror.Validation("idempotency_key is required")
	}
	switch req.Method {
	case domain.PaymentMethodWallet, domain.PaymentMethodCreditCard, domain.PaymentMethodBankTransfer:
	default:
		return apperror.Validation("unsupported payment method")
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	// reconCacheTTL bounds how long a terminal outcome is served from the
	// fast path before falling through to the store again.
	reconCacheTTL = 24 * time.Hour

	// casAttempts is the number of optimistic writes tried per reconciliation:
	// the initial attempt plus one reload-and-retry.
	casAttempts = 2
)

// ReconService implements ports.ReconciliationService. It is the only
// component permitted to advance a payment's state machine.
type ReconService struct {
	payments      ports.PaymentRepository
	ledger        ports.WalletLedger
	gateway       ports.GatewayClient
	audit         ports.AuditService
	cache         ports.ReconCache // nil = fast path disabled
	verifyTimeout time.Duration
	log           zerolog.Logger
}

// NewReconService creates a new ReconService.
func NewReconService(
	payments ports.PaymentRepository,
	ledger ports.WalletLedger,
	gateway ports.GatewayClient,
	audit ports.AuditService,
	cache ports.ReconCache,
	verifyTimeout time.Duration,
	log zerolog.Logger,
) *ReconService {
	return &ReconService{
		payments:      payments,
		ledger:        ledger,
		gateway:       gateway,
		audit:         audit,
		cache:         cache,
		verifyTimeout: verifyTimeout,
		log:           log,
	}
}

// Reconcile re-derives the payment's authoritative state from the gateway and
// applies it. The hint from the notification body is advisory only: a forged
// or stale webhook must not be able to move money, so the verifier is always
// consulted before any write. Safe to call any number of times.
func (s *ReconService) Reconcile(ctx context.Context, gatewayRef string, hint domain.GatewayStatus) (*domain.Payment, error) {
	if cached := s.cachedTerminal(ctx, gatewayRef); cached != nil {
		return cached, nil
	}

	p, err := s.payments.GetByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payment by gateway ref: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrUnknownPayment(gatewayRef)
	}

	// Terminal payments answer idempotently: gateways retry webhooks, and a
	// replay must produce the same result with no second side effect.
	if p.IsTerminal() {
		s.cacheTerminal(ctx, gatewayRef, p)
		return p, nil
	}

	status, err := s.verify(ctx, gatewayRef)
	if err != nil {
		return nil, apperror.ErrVerificationUnavailable(err)
	}
	if hint != "" && hint != domain.GatewayStatusUnknown && hint != status {
		s.log.Warn().
			Str("gateway_ref", gatewayRef).
			Str("hint", string(hint)).
			Str("verified", string(status)).
			Msg("webhook hint disagrees with verifier, trusting verifier")
	}

	target := status.TargetPaymentStatus()
	if target == p.Status {
		// Gateway still undecided; nothing to write, nothing to audit.
		return p, nil
	}

	prior, err := s.transition(ctx, gatewayRef, &p, target)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		// A concurrent reconciliation already landed the outcome.
		return p, nil
	}

	if err := s.applyLedgerEffects(ctx, p); err != nil {
		s.rollback(ctx, p, *prior)
		return nil, err
	}

	s.audit.Record(ctx, domain.ActorSystem, "payment", p.ID.String(), domain.AuditActionForStatus(target), map[string]any{
		"from":        string(*prior),
		"to":          string(target),
		"gateway_ref": gatewayRef,
	})
	if target.IsTerminal() {
		s.cacheTerminal(ctx, gatewayRef, p)
	}

	s.log.Info().
		Str("payment_id", p.ID.String()).
		Str("gateway_ref", gatewayRef).
		Str("from", string(*prior)).
		Str("to", string(target)).
		Msg("payment reconciled")

	return p, nil
}

// transition performs the optimistic write, reloading and retrying once on a
// stale revision. On success it mutates p in place and returns the prior
// status. A nil prior with nil error means another writer already produced an
// acceptable state and there is nothing left to do.
func (s *ReconService) transition(ctx context.Context, gatewayRef string, pp **domain.Payment, target domain.PaymentStatus) (*domain.PaymentStatus, error) {
	p := *pp
	for attempt := 0; attempt < casAttempts; attempt++ {
		if !p.CanTransitionTo(target) {
			return nil, nil
		}
		ok, err := s.payments.UpdateStatusChecked(ctx, p.ID, p.Revision, target)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update payment status: %w", err))
		}
		if ok {
			prior := p.Status
			now := time.Now().UTC()
			p.Status = target
			p.Revision++
			p.UpdatedAt = now
			if target.IsTerminal() {
				p.ProcessedAt = &now
			}
			return &prior, nil
		}

		s.log.Debug().
			Str("payment_id", p.ID.String()).
			Int64("revision", p.Revision).
			Msg("stale revision, reloading payment")

		p, err = s.payments.GetByGatewayRef(ctx, gatewayRef)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("reload payment: %w", err))
		}
		if p == nil {
			return nil, apperror.ErrUnknownPayment(gatewayRef)
		}
		*pp = p
		if p.IsTerminal() || p.Status == target {
			return nil, nil
		}
	}
	return nil, apperror.ErrConcurrentUpdateConflict()
}

// applyLedgerEffects moves money for settlement outcomes. The ledger's
// (wallet, payment, kind) idempotency key makes this safe to retry: a
// duplicate attempt returns the existing entry instead of crediting twice.
func (s *ReconService) applyLedgerEffects(ctx context.Context, p *domain.Payment) error {
	switch p.Status {
	case domain.PaymentStatusSettled:
		_, err := s.ledger.ApplyEntry(ctx, ports.LedgerEntry{
			WalletID:    p.WalletID,
			Kind:        domain.EntryKindSettlement,
			Amount:      p.Amount,
			PaymentID:   &p.ID,
			Description: "Settlement for order " + p.OrderID,
			ActorID:     domain.ActorSystem,
		})
		return err

	case domain.PaymentStatusReversed:
		// Claw back only what was actually credited. A payment can reach
		// REVERSED without ever settling here (gateway refunded before we
		// recorded settlement), in which case there is nothing to move.
		credited, err := s.ledger.HasEntry(ctx, p.WalletID, p.ID, domain.EntryKindSettlement)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("check settlement entry: %w", err))
		}
		if !credited {
			return nil
		}
		_, err = s.ledger.ApplyEntry(ctx, ports.LedgerEntry{
			WalletID:    p.WalletID,
			Kind:        domain.EntryKindReversal,
			Amount:      -p.Amount,
			PaymentID:   &p.ID,
			Description: "Reversal for order " + p.OrderID,
			ActorID:     domain.ActorSystem,
		})
		return err
	}
	return nil
}

// rollback restores the pre-transition status after a ledger failure so the
// payment is not left claiming an outcome whose money never moved.
func (s *ReconService) rollback(ctx context.Context, p *domain.Payment, prior domain.PaymentStatus) {
	ok, err := s.payments.UpdateStatusChecked(ctx, p.ID, p.Revision, prior)
	if err != nil || !ok {
		// The next reconciliation attempt re-derives from the gateway, so a
		// failed rollback degrades to a retry, not a corruption.
		s.log.Error().
			Err(err).
			Bool("applied", ok).
			Str("payment_id", p.ID.String()).
			Str("restore_to", string(prior)).
			Msg("payment rollback after ledger failure did not apply")
		return
	}
	p.Status = prior
	p.Revision++
}

func (s *ReconService) verify(ctx context.Context, gatewayRef string) (domain.GatewayStatus, error) {
	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()
	return s.gateway.Verify(vctx, gatewayRef)
}

// cachedTerminal serves the fast path for replayed webhooks: a terminal
// payment cached by an earlier reconciliation, best effort.
func (s *ReconService) cachedTerminal(ctx context.Context, gatewayRef string) *domain.Payment {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, gatewayRef)
	if err != nil {
		s.log.Warn().Err(err).Str("gateway_ref", gatewayRef).Msg("recon cache read failed")
		return nil
	}
	if payload == nil {
		return nil
	}
	var p domain.Payment
	if err := json.Unmarshal(payload, &p); err != nil {
		s.log.Warn().Err(err).Str("gateway_ref", gatewayRef).Msg("recon cache payload corrupt")
		return nil
	}
	if !p.IsTerminal() {
		return nil
	}
	return &p
}

// cacheTerminal records a terminal outcome in the fast-path cache, best effort.
func (s *ReconService) cacheTerminal(ctx context.Context, gatewayRef string, p *domain.Payment) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, gatewayRef, payload, reconCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("gateway_ref", gatewayRef).Msg("failed to cache reconciliation outcome")
	}
}

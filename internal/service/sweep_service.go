package service

import (
	"context"
	"errors"
	"time"

	"procure-pay/internal/core/ports"
	"procure-pay/pkg/apperror"

	"github.com/rs/zerolog"
)

// SweepService periodically reconciles payments whose webhook never arrived.
// It reuses the same reconciliation entry point as webhook delivery, so a
// sweep and a late webhook racing each other is just the normal concurrent
// reconciliation case.
type SweepService struct {
	payments  ports.PaymentRepository
	recon     ports.ReconciliationService
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewSweepService creates a new SweepService. minAge keeps the sweep off
// payments young enough that their webhook is still plausibly in flight.
func NewSweepService(
	payments ports.PaymentRepository,
	recon ports.ReconciliationService,
	interval, minAge time.Duration,
	batchSize int,
	log zerolog.Logger,
) *SweepService {
	return &SweepService{
		payments:  payments,
		recon:     recon,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		log:       log,
	}
}

// Run sweeps on a ticker until ctx is cancelled. Call in its own goroutine.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.interval).
		Dur("min_age", s.minAge).
		Msg("reconciliation sweep started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation sweep stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce reconciles one batch of stale unsettled payments.
func (s *SweepService) SweepOnce(ctx context.Context) {
	olderThan := time.Now().UTC().Add(-s.minAge)
	stale, err := s.payments.ListUnsettled(ctx, olderThan, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: listing unsettled payments failed")
		return
	}
	if len(stale) == 0 {
		return
	}

	var resolved int
	for i := range stale {
		p := &stale[i]
		if p.GatewayRef == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if _, err := s.recon.Reconcile(ctx, *p.GatewayRef, ""); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code == apperror.CodeVerificationUnavailable {
				// Verifier down; the rest of the batch would fail the same way.
				s.log.Warn().Err(err).Msg("sweep: verifier unavailable, abandoning batch")
				break
			}
			s.log.Error().
				Err(err).
				Str("payment_id", p.ID.String()).
				Str("gateway_ref", *p.GatewayRef).
				Msg("sweep: reconcile failed")
			continue
		}
		resolved++
	}

	s.log.Info().
		Int("candidates", len(stale)).
		Int("resolved", resolved).
		Msg("sweep pass complete")
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
	"procure-pay/pkg/ident"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit records are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record persists an audit entry asynchronously (fire-and-forget). A sink
// failure must never fail the business operation that caused it.
func (s *auditService) Record(ctx context.Context, actorID, entityType, entityID string, action domain.AuditAction, metadata map[string]any) {
	details := ""
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			details = string(b)
		}
	}
	entry := &domain.AuditLog{
		ID:         ident.New(),
		ActorID:    actorID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	go func() {
		s.log.Info().
			Str("action", string(action)).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Str("actor", actorID).
			Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to persist audit record")
			}
		}
	}()
}

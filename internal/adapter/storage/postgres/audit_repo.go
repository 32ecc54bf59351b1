package postgres

import (
	"context"

	"procure-pay/internal/core/domain"
	"procure-pay/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, actor_id, entity_type, entity_id, action, details, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.ActorID, entry.EntityType, entry.EntityID, string(entry.Action),
		entry.Details, entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	return err
}

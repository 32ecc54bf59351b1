package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, order_id, wallet_id, method, gateway_ref, amount, currency,
	status, revision, idempotency_key, created_at, updated_at, processed_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment. Status and revision are written as given;
// all later mutations go through UpdateStatusChecked.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (id, order_id, wallet_id, method, gateway_ref, amount, currency,
		status, revision, idempotency_key, created_at, updated_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.OrderID, p.WalletID, p.Method, p.GatewayRef, p.Amount, p.Currency,
		p.Status, p.Revision, p.IdempotencyKey, p.CreatedAt, p.UpdatedAt, p.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by its UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), "get payment by id")
}

// GetByGatewayRef fetches the payment owning a gateway reference.
func (r *PaymentRepo) GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_ref = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, gatewayRef), "get payment by gateway ref")
}

// GetByIdempotencyKey fetches the payment created under an idempotency key.
func (r *PaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE idempotency_key = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, key), "get payment by idempotency key")
}

// GetActiveByOrder fetches the order's non-terminal payment, if any.
func (r *PaymentRepo) GetActiveByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id = $1 AND status IN ('PENDING', 'VERIFYING')`
	return r.scanOne(r.pool.QueryRow(ctx, query, orderID), "get active payment by order")
}

// UpdateStatusChecked is the optimistic write: the row moves only if its
// revision is still the one the caller last read. Terminal timestamps are
// stamped by the same statement so there is no second write to race.
func (r *PaymentRepo) UpdateStatusChecked(ctx context.Context, id uuid.UUID, expectedRevision int64, status domain.PaymentStatus) (bool, error) {
	query := `UPDATE payments
		SET status = $1,
		    revision = revision + 1,
		    updated_at = NOW(),
		    processed_at = CASE WHEN $2 THEN NOW() ELSE processed_at END
		WHERE id = $3 AND revision = $4`

	tag, err := r.pool.Exec(ctx, query, status, status.IsTerminal(), id, expectedRevision)
	if err != nil {
		return false, fmt.Errorf("update payment status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUnsettled returns non-terminal payments with a gateway reference last
// touched before olderThan, oldest first.
func (r *PaymentRepo) ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status IN ('PENDING', 'VERIFYING')
		  AND gateway_ref IS NOT NULL
		  AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsettled payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.WalletID, &p.Method, &p.GatewayRef, &p.Amount, &p.Currency,
			&p.Status, &p.Revision, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt, &p.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan unsettled payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsettled payments: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepo) scanOne(row pgx.Row, op string) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.OrderID, &p.WalletID, &p.Method, &p.GatewayRef, &p.Amount, &p.Currency,
		&p.Status, &p.Revision, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt, &p.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

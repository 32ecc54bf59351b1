package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorSystem is the actor recorded for transitions driven by gateway
// notifications or the scheduled sweep rather than a user.
const ActorSystem = "system"

// AuditAction names an audited action.
type AuditAction string

const (
	AuditActionPaymentCreated   AuditAction = "PAYMENT_CREATED"
	AuditActionPaymentVerifying AuditAction = "PAYMENT_VERIFYING"
	AuditActionPaymentSettled   AuditAction = "PAYMENT_SETTLED"
	AuditActionPaymentFailed    AuditAction = "PAYMENT_FAILED"
	AuditActionPaymentReversed  AuditAction = "PAYMENT_REVERSED"
	AuditActionWalletCredit     AuditAction = "WALLET_CREDIT"
	AuditActionWalletDebit      AuditAction = "WALLET_DEBIT"
	AuditActionWalletCreated    AuditAction = "WALLET_CREATED"
)

// AuditActionForStatus returns the audit action recorded for a transition
// into the given payment status.
func AuditActionForStatus(s PaymentStatus) AuditAction {
	switch s {
	case PaymentStatusVerifying:
		return AuditActionPaymentVerifying
	case PaymentStatusSettled:
		return AuditActionPaymentSettled
	case PaymentStatusFailed:
		return AuditActionPaymentFailed
	case PaymentStatusReversed:
		return AuditActionPaymentReversed
	}
	return AuditActionPaymentCreated
}

// AuditLog records a single audited action. The audit store is an append-only
// sink owned by ops; this system only writes to it.
type AuditLog struct {
	ID         uuid.UUID   `json:"id"`
	ActorID    string      `json:"actor_id"`
	EntityType string      `json:"entity_type"` // e.g. "payment", "wallet"
	EntityID   string      `json:"entity_id"`
	Action     AuditAction `json:"action"`
	Details    string      `json:"details,omitempty"` // JSON string
	IPAddress  string      `json:"ip_address,omitempty"`
	UserAgent  string      `json:"user_agent,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod identifies how a payment is funded.
type PaymentMethod string

const (
	PaymentMethodWallet       PaymentMethod = "WALLET"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusVerifying PaymentStatus = "VERIFYING"
	PaymentStatusSettled   PaymentStatus = "SETTLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusReversed  PaymentStatus = "REVERSED"
)

// IsTerminal returns true if the status admits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSettled || s == PaymentStatusFailed || s == PaymentStatusReversed
}

// Payment is the authoritative record of one payment attempt for an order.
// It is mutated only through the compare-and-swap path keyed by Revision.
type Payment struct {
	ID             uuid.UUID     `json:"id"`
	OrderID        string        `json:"order_id"`
	WalletID       uuid.UUID     `json:"wallet_id"`
	Method         PaymentMethod `json:"method"`
	GatewayRef     *string       `json:"gateway_ref,omitempty"` // assigned by the gateway, immutable once set
	Amount         int64         `json:"amount"`                // minor units
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	Revision       int64         `json:"revision"`
	IdempotencyKey string        `json:"idempotency_key"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	ProcessedAt    *time.Time    `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the payment is in a final state.
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// CanTransitionTo reports whether moving to next is a legal state-machine edge.
// PENDING may enter verification or jump straight to a terminal outcome;
// VERIFYING may only resolve to a terminal outcome; terminal states never move.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	if p.Status.IsTerminal() {
		return false
	}
	switch p.Status {
	case PaymentStatusPending:
		return next == PaymentStatusVerifying || next.IsTerminal()
	case PaymentStatusVerifying:
		return next.IsTerminal()
	}
	return false
}

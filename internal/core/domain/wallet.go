package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds an account's cached balance. The wallet_transactions ledger is
// the source of truth; Balance must equal the sum of all entries at every
// commit point.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	AccountID string    `json:"account_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"` // minor units
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryKind classifies a ledger entry by what caused it.
type EntryKind string

const (
	EntryKindTopup      EntryKind = "TOPUP"      // manual top-up by ops
	EntryKindSettlement EntryKind = "SETTLEMENT" // credit on payment settlement
	EntryKindDebit      EntryKind = "DEBIT"      // debit funding a wallet payment
	EntryKindReversal   EntryKind = "REVERSAL"   // compensating entry for a reversed settlement
)

// WalletTransaction is one immutable, signed balance change applied to a
// wallet. Entries are append-only and never mutated or deleted.
type WalletTransaction struct {
	ID           uuid.UUID  `json:"id"`
	WalletID     uuid.UUID  `json:"wallet_id"`
	Kind         EntryKind  `json:"kind"`
	Amount       int64      `json:"amount"`        // signed, minor units
	BalanceAfter int64      `json:"balance_after"` // wallet balance immediately after this entry
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Replays reports whether this entry is the idempotent twin of an attempt to
// apply kind/paymentID to the same wallet. (walletID, paymentID, kind) is the
// idempotency key; entries without a causing payment never replay.
func (t *WalletTransaction) Replays(walletID uuid.UUID, paymentID *uuid.UUID, kind EntryKind) bool {
	if t.PaymentID == nil || paymentID == nil {
		return false
	}
	return t.WalletID == walletID && *t.PaymentID == *paymentID && t.Kind == kind
}

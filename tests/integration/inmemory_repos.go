package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- In-Memory Transactor ---

// memTx stands in for a database transaction. A single mutex plays the role
// of the wallet row lock: Begin acquires it, Commit/Rollback release it, so
// concurrent ledger writes serialize exactly like FOR UPDATE would.
type memTx struct {
	pgx.Tx
	release *sync.Once
	mu      *sync.Mutex
}

func (t *memTx) Commit(ctx context.Context) error {
	t.release.Do(t.mu.Unlock)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.release.Do(t.mu.Unlock)
	return nil
}

type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (tr *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tr.mu.Lock()
	return &memTx{release: &sync.Once{}, mu: &tr.mu}, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.payments {
		if existing.IdempotencyKey == p.IdempotencyKey {
			return fmt.Errorf("idempotency key already exists")
		}
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPaymentRepo) GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.GatewayRef != nil && *p.GatewayRef == gatewayRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.IdempotencyKey == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) GetActiveByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.OrderID == orderID && !p.Status.IsTerminal() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) UpdateStatusChecked(ctx context.Context, id uuid.UUID, expectedRevision int64, status domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Revision != expectedRevision {
		return false, nil
	}
	p.Status = status
	p.Revision++
	p.UpdatedAt = time.Now()
	if status.IsTerminal() {
		now := time.Now()
		p.ProcessedAt = &now
	}
	return true, nil
}

func (r *inMemoryPaymentRepo) ListUnsettled(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if !p.Status.IsTerminal() && p.GatewayRef != nil && p.UpdatedAt.Before(olderThan) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.AccountID == w.AccountID {
			return fmt.Errorf("account already has a wallet")
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByAccountID(ctx context.Context, accountID string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.AccountID == accountID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	// The transactor's mutex is already held; a plain read is safe.
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	w.UpdatedAt = time.Now()
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu      sync.RWMutex
	entries []domain.WalletTransaction
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if (&r.entries[i]).Replays(entry.WalletID, entry.PaymentID, entry.Kind) {
			return fmt.Errorf("duplicate ledger entry")
		}
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) GetByPayment(ctx context.Context, tx pgx.Tx, walletID, paymentID uuid.UUID, kind domain.EntryKind) (*domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		e := r.entries[i]
		if e.WalletID == walletID && e.PaymentID != nil && *e.PaymentID == paymentID && e.Kind == kind {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerRepo) ExistsByPayment(ctx context.Context, walletID, paymentID uuid.UUID, kind domain.EntryKind) (bool, error) {
	e, err := r.GetByPayment(ctx, nil, walletID, paymentID, kind)
	return e != nil, err
}

func (r *inMemoryLedgerRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WalletTransaction
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WalletID == walletID {
			out = append(out, r.entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *inMemoryLedgerRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for i := range r.entries {
		if r.entries[i].WalletID == walletID {
			sum += r.entries[i].Amount
		}
	}
	return sum, nil
}

func (r *inMemoryLedgerRepo) countByKind(walletID uuid.UUID, kind domain.EntryKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for i := range r.entries {
		if r.entries[i].WalletID == walletID && r.entries[i].Kind == kind {
			n++
		}
	}
	return n
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

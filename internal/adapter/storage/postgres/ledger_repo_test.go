package postgres

import (
	"context"
	"testing"
	"time"

	"procure-pay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry(walletID uuid.UUID, paymentID *uuid.UUID) *domain.WalletTransaction {
	return &domain.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     walletID,
		Kind:         domain.EntryKindSettlement,
		Amount:       30000,
		BalanceAfter: 130000,
		PaymentID:    paymentID,
		Description:  "Settlement for order ORD-1",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func entryColumnNames() []string {
	return []string{"id", "wallet_id", "kind", "amount", "balance_after", "payment_id", "description", "created_at"}
}

func entryRow(e *domain.WalletTransaction) *pgxmock.Rows {
	return pgxmock.NewRows(entryColumnNames()).AddRow(
		e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter, e.PaymentID, e.Description, e.CreatedAt,
	)
}

func TestLedgerRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	paymentID := uuid.New()
	e := newTestEntry(uuid.New(), &paymentID)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallet_transactions").
		WithArgs(e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter,
			e.PaymentID, e.Description, e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = repo.Insert(ctx, tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByPayment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	paymentID := uuid.New()
	e := newTestEntry(uuid.New(), &paymentID)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions").
		WithArgs(e.WalletID, paymentID, domain.EntryKindSettlement).
		WillReturnRows(entryRow(e))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	result, err := repo.GetByPayment(ctx, tx, e.WalletID, paymentID, domain.EntryKindSettlement)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.ID, result.ID)
	assert.Equal(t, int64(130000), result.BalanceAfter)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_GetByPayment_Absent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(entryColumnNames()))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	result, err := repo.GetByPayment(ctx, tx, uuid.New(), uuid.New(), domain.EntryKindReversal)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ExistsByPayment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	paymentID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(walletID, paymentID, domain.EntryKindSettlement).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsByPayment(context.Background(), walletID, paymentID, domain.EntryKindSettlement)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()
	paymentID := uuid.New()
	e1 := newTestEntry(walletID, &paymentID)
	e2 := newTestEntry(walletID, nil)
	e2.Kind = domain.EntryKindTopup

	rows := entryRow(e1).AddRow(
		e2.ID, e2.WalletID, e2.Kind, e2.Amount, e2.BalanceAfter, e2.PaymentID, e2.Description, e2.CreatedAt,
	)
	mock.ExpectQuery("SELECT .+ FROM wallet_transactions").
		WithArgs(walletID, 20).
		WillReturnRows(rows)

	result, err := repo.ListByWallet(context.Background(), walletID, 20)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, domain.EntryKindTopup, result[1].Kind)
	assert.Nil(t, result[1].PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_SumByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(42500)))

	sum, err := repo.SumByWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(42500), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walletColumns() []string {
	return []string{"owner", "balance", "created_at", "updated_at"}
}

func walletRow(owner domain.Identity, balance string) *pgxmock.Rows {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return pgxmock.NewRows(walletColumns()).AddRow(owner, balance, now, now)
}

func TestWalletRepo_GetOrCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("bobby")

	mock.ExpectExec("INSERT INTO wallets .+ ON CONFLICT \\(owner\\) DO NOTHING").
		WithArgs(owner).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner").
		WithArgs(owner).
		WillReturnRows(walletRow(owner, "0"))

	w, err := repo.GetOrCreate(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, owner, w.Owner)
	assert.True(t, w.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetOrCreate_InsertFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(domain.Identity("bobby")).
		WillReturnError(errors.New("connection refused"))

	_, err = repo.GetOrCreate(context.Background(), "bobby")
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetOrCreateForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("carol_c")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(owner).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner = \\$1 FOR UPDATE").
		WithArgs(owner).
		WillReturnRows(walletRow(owner, "125.5000"))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	w, err := repo.GetOrCreateForUpdate(context.Background(), dbTx, owner)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("125.5").Equal(w.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetOrCreateForUpdate_LockTimeout(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("carol_c")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(owner).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs(owner).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.GetOrCreateForUpdate(context.Background(), dbTx, owner)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestWalletRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallets WHERE owner").
		WithArgs(domain.Identity("nobody_x")).
		WillReturnError(pgx.ErrNoRows)

	w, err := repo.Get(context.Background(), "nobody_x")
	assert.NoError(t, err)
	assert.Nil(t, w)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM wallets ORDER BY owner").
		WillReturnRows(pgxmock.NewRows(walletColumns()).
			AddRow(domain.Identity("bobby"), "180", now, now).
			AddRow(domain.Identity("carol_c"), "120", now, now))

	wallets, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, domain.Identity("bobby"), wallets[0].Owner)
	assert.True(t, decimal.NewFromInt(120).Equal(wallets[1].Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ApplyDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("bobby")
	delta := decimal.RequireFromString("-120")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets SET balance = balance \\+ \\$2").
		WithArgs(owner, delta).
		WillReturnRows(walletRow(owner, "180"))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	w, err := repo.ApplyDelta(context.Background(), dbTx, owner, delta)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(180).Equal(w.Balance))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ApplyDelta_WouldGoNegative(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("bobby")
	delta := decimal.RequireFromString("-1000")

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets").
		WithArgs(owner, delta).
		WillReturnError(pgx.ErrNoRows)

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.ApplyDelta(context.Background(), dbTx, owner, delta)
	assert.ErrorIs(t, err, domain.ErrNegativeBalance)
}

func TestWalletRepo_ApplyDelta_Deadlock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	owner := domain.Identity("bobby")
	delta := decimal.NewFromInt(1)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE wallets").
		WithArgs(owner, delta).
		WillReturnError(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = repo.ApplyDelta(context.Background(), dbTx, owner, delta)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

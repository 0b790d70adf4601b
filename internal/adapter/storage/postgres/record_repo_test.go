package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMintRepo(mock)
	m := domain.NewMint("alice_admin", "bobby", decimal.NewFromInt(300), time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO mints").
		WithArgs(m.ID, m.Issuer, m.Recipient, m.Amount, m.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, m)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMintRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewMintRepo(mock)
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM mints ORDER BY created_at, seq").
		WillReturnRows(pgxmock.NewRows([]string{"id", "issuer", "recipient", "amount", "created_at"}).
			AddRow(id, domain.Identity("alice_admin"), domain.Identity("bobby"), "300.0000", now))

	mints, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, mints, 1)
	assert.Equal(t, id, mints[0].ID)
	assert.Equal(t, domain.Identity("bobby"), mints[0].Recipient)
	assert.True(t, decimal.NewFromInt(300).Equal(mints[0].Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMintRepo_List_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM mints").WillReturnError(errors.New("relation \"mints\" does not exist"))

	_, err = NewMintRepo(mock).List(context.Background())
	assert.ErrorContains(t, err, "list mints")
}

func transferColumns() []string {
	return []string{"id", "sender", "recipient", "amount", "kind", "created_at"}
}

func TestTransferRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	tr := domain.NewTransfer("bobby", "carol_c", decimal.NewFromInt(120), domain.TransferKindTransfer, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transfers").
		WithArgs(tr.ID, tr.Sender, tr.Recipient, tr.Amount, tr.Kind, tr.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, tr)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM transfers ORDER BY created_at, seq").
		WillReturnRows(pgxmock.NewRows(transferColumns()).
			AddRow(uuid.New(), domain.Identity("bobby"), domain.Identity("carol_c"), "1", domain.TransferKindTransfer, now).
			AddRow(uuid.New(), domain.Identity("dave_d"), domain.Identity("bobby"), "2", domain.TransferKindCharge, now))

	transfers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, domain.TransferKindCharge, transfers[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRepo_ListFor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransferRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := domain.Identity("carol_c")

	mock.ExpectQuery("WHERE sender = \\$1 OR recipient = \\$1").
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows(transferColumns()).
			AddRow(uuid.New(), domain.Identity("bobby"), owner, "120", domain.TransferKindTransfer, now))

	transfers, err := repo.ListFor(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.True(t, transfers[0].Involves(owner))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepository(mock)
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		Actor:      "bobby",
		Action:     domain.OpTransfer,
		Outcome:    domain.AuditOutcomeSuccess,
		ResourceID: uuid.New().String(),
		Details:    `{"amount":"120","counterparty":"carol_c"}`,
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, entry.Actor, entry.Action, entry.Outcome, entry.ResourceID, entry.Details, entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

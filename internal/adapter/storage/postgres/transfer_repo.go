package postgres

import (
	"context"
	"fmt"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const selectTransfersSQL = `SELECT id, sender, recipient, amount, kind, created_at FROM transfers`

// TransferRepo implements ports.TransferRepository.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

// Create inserts a transfer record within a transaction.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (id, sender, recipient, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, t.ID, t.Sender, t.Recipient, t.Amount, t.Kind, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", translate(err))
	}
	return nil
}

// List returns every transfer in creation order.
func (r *TransferRepo) List(ctx context.Context) ([]domain.Transfer, error) {
	return r.query(ctx, selectTransfersSQL+` ORDER BY created_at, seq`)
}

// ListFor returns the transfers owner sent or received, in creation order.
func (r *TransferRepo) ListFor(ctx context.Context, owner domain.Identity) ([]domain.Transfer, error) {
	return r.query(ctx, selectTransfersSQL+` WHERE sender = $1 OR recipient = $1 ORDER BY created_at, seq`, owner)
}

func (r *TransferRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Transfer, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", translate(err))
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t := domain.Transfer{}
		if err := rows.Scan(&t.ID, &t.Sender, &t.Recipient, &t.Amount, &t.Kind, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", translate(err))
	}
	return transfers, nil
}

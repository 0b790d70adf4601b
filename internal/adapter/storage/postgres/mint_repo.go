package postgres

import (
	"context"
	"fmt"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MintRepo implements ports.MintRepository.
type MintRepo struct {
	pool Pool
}

// NewMintRepo creates a new MintRepo.
func NewMintRepo(pool Pool) *MintRepo {
	return &MintRepo{pool: pool}
}

// Create inserts a mint record within a transaction.
func (r *MintRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Mint) error {
	query := `INSERT INTO mints (id, issuer, recipient, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, m.ID, m.Issuer, m.Recipient, m.Amount, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mint: %w", translate(err))
	}
	return nil
}

// List returns every mint in creation order.
func (r *MintRepo) List(ctx context.Context) ([]domain.Mint, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, issuer, recipient, amount, created_at
		FROM mints ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("list mints: %w", translate(err))
	}
	defer rows.Close()

	var mints []domain.Mint
	for rows.Next() {
		m := domain.Mint{}
		if err := rows.Scan(&m.ID, &m.Issuer, &m.Recipient, &m.Amount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mint row: %w", err)
		}
		mints = append(mints, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint rows: %w", translate(err))
	}
	return mints, nil
}

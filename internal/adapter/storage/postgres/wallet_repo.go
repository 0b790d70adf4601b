package postgres

import (
	"context"
	"errors"
	"fmt"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	insertWalletSQL = `INSERT INTO wallets (owner, balance, created_at, updated_at)
		VALUES ($1, 0, NOW(), NOW()) ON CONFLICT (owner) DO NOTHING`
	selectWalletSQL = `SELECT owner, balance, created_at, updated_at FROM wallets WHERE owner = $1`
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	if err := row.Scan(&w.Owner, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

// GetOrCreate inserts an empty wallet unless one exists, then reads it back.
// The insert commits on its own, outside any ledger transaction.
func (r *WalletRepo) GetOrCreate(ctx context.Context, owner domain.Identity) (*domain.Wallet, error) {
	if _, err := r.pool.Exec(ctx, insertWalletSQL, owner); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", translate(err))
	}

	w, err := scanWallet(r.pool.QueryRow(ctx, selectWalletSQL, owner))
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", translate(err))
	}
	return w, nil
}

// GetOrCreateForUpdate creates the wallet if needed and row-locks it.
// This MUST be called within a transaction.
func (r *WalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, owner domain.Identity) (*domain.Wallet, error) {
	if _, err := tx.Exec(ctx, insertWalletSQL, owner); err != nil {
		return nil, fmt.Errorf("insert wallet: %w", translate(err))
	}

	w, err := scanWallet(tx.QueryRow(ctx, selectWalletSQL+" FOR UPDATE", owner))
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", translate(err))
	}
	return w, nil
}

// Get fetches a wallet without locking. Returns nil, nil if absent.
func (r *WalletRepo) Get(ctx context.Context, owner domain.Identity) (*domain.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx, selectWalletSQL, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", translate(err))
	}
	return w, nil
}

// List returns every wallet ordered by owner.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	rows, err := r.pool.Query(ctx, `SELECT owner, balance, created_at, updated_at FROM wallets ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", translate(err))
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		wallets = append(wallets, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", translate(err))
	}
	return wallets, nil
}

// ApplyDelta adds delta to a locked wallet. The guard in the WHERE clause
// refuses any update that would go below zero; that surfaces as
// domain.ErrNegativeBalance.
func (r *WalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, owner domain.Identity, delta decimal.Decimal) (*domain.Wallet, error) {
	query := `UPDATE wallets SET balance = balance + $2, updated_at = NOW()
		WHERE owner = $1 AND balance + $2 >= 0
		RETURNING owner, balance, created_at, updated_at`

	w, err := scanWallet(tx.QueryRow(ctx, query, owner, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNegativeBalance
		}
		return nil, fmt.Errorf("apply delta: %w", translate(err))
	}
	return w, nil
}

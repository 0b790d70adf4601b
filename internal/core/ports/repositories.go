package ports

import (
	"context"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	// GetOrCreate returns the wallet of owner, creating an empty one if absent.
	GetOrCreate(ctx context.Context, owner domain.Identity) (*domain.Wallet, error)
	// GetOrCreateForUpdate is GetOrCreate inside tx, leaving the wallet locked until tx ends.
	GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, owner domain.Identity) (*domain.Wallet, error)
	// Get returns nil, nil when owner has no wallet.
	Get(ctx context.Context, owner domain.Identity) (*domain.Wallet, error)
	List(ctx context.Context) ([]domain.Wallet, error)
	// ApplyDelta adds delta to the locked wallet's balance. It returns
	// domain.ErrNegativeBalance and changes nothing if the result would be negative.
	ApplyDelta(ctx context.Context, tx pgx.Tx, owner domain.Identity, delta decimal.Decimal) (*domain.Wallet, error)
}

// MintRepository defines persistence operations for mint records.
type MintRepository interface {
	Create(ctx context.Context, tx pgx.Tx, mint *domain.Mint) error
	List(ctx context.Context) ([]domain.Mint, error)
}

// TransferRepository defines persistence operations for transfer records.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	List(ctx context.Context) ([]domain.Transfer, error)
	// ListFor returns transfers where owner is the sender or the recipient.
	ListFor(ctx context.Context, owner domain.Identity) ([]domain.Transfer, error)
}

// AuditRepository persists the operation journal.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

// CommandLogRepository durably records chat commands that carry an id, so a
// redelivered command is answered from its first execution.
type CommandLogRepository interface {
	// Claim reserves key inside tx. It returns domain.ErrDuplicateCommand if
	// key was already committed; a concurrent claim waits for the holder's tx.
	Claim(ctx context.Context, tx pgx.Tx, key string, op domain.Operation, now time.Time) error
	// Complete stores the result of a key claimed in the same tx.
	Complete(ctx context.Context, tx pgx.Tx, rec *domain.CommandRecord) error
	// Get returns the committed record of key, or nil, nil if there is none.
	Get(ctx context.Context, key string) (*domain.CommandRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

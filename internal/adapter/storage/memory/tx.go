package memory

import (
	"context"
	"errors"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Tx is a memory store transaction. It satisfies pgx.Tx so it can flow through
// the same ports as a Postgres transaction; only Commit and Rollback are
// implemented, the embedded pgx.Tx is nil.
type Tx struct {
	pgx.Tx

	store     *Store
	held      map[string]chan struct{}
	staged    map[domain.Identity]*domain.Wallet
	claims    map[string]*domain.CommandRecord
	mints     []domain.Mint
	transfers []domain.Transfer
	done      bool
}

// Commit applies the staged writes atomically and releases every lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	defer t.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	return t.store.apply(t)
}

// Rollback discards the staged writes and releases every lock.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.release()
	return nil
}

func (t *Tx) release() {
	for name, l := range t.held {
		<-l
		delete(t.held, name)
	}
	t.staged = nil
	t.claims = nil
	t.mints = nil
	t.transfers = nil
}

func asTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, errForeignTx
	}
	if t.done {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

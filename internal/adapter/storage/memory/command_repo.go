package memory

import (
	"context"
	"fmt"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CommandRepo implements ports.CommandLogRepository over a Store.
type CommandRepo struct {
	s *Store
}

// Claim takes the key's lock for the rest of tx and fails with
// domain.ErrDuplicateCommand if the key was already committed. A concurrent
// claim of the same key waits until the holder commits or rolls back.
func (r *CommandRepo) Claim(ctx context.Context, tx pgx.Tx, key string, op domain.Operation, now time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	if _, ok := t.claims[key]; ok {
		return domain.ErrDuplicateCommand
	}

	l, err := r.s.acquire(ctx, commandLock(key))
	if err != nil {
		return err
	}
	t.held[commandLock(key)] = l

	if _, done := r.s.committedCommand(key); done {
		return domain.ErrDuplicateCommand
	}
	t.claims[key] = &domain.CommandRecord{Key: key, Operation: op, CreatedAt: now}
	return nil
}

// Complete stages the result of a key claimed in tx.
func (r *CommandRepo) Complete(ctx context.Context, tx pgx.Tx, rec *domain.CommandRecord) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	claimed, ok := t.claims[rec.Key]
	if !ok {
		return fmt.Errorf("complete command %s: not claimed", rec.Key)
	}
	claimed.ResourceID = rec.ResourceID
	claimed.Result = append([]byte(nil), rec.Result...)
	return ctx.Err()
}

// Get returns the committed record of key, or nil, nil if there is none.
func (r *CommandRepo) Get(ctx context.Context, key string) (*domain.CommandRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := r.s.committedCommand(key)
	if !ok || !rec.Completed() {
		return nil, nil
	}
	return &rec, nil
}

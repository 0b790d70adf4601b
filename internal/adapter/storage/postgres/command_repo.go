package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CommandRepo implements ports.CommandLogRepository over the command_log table.
type CommandRepo struct {
	pool Pool
}

// NewCommandRepo creates a new CommandRepo.
func NewCommandRepo(pool Pool) *CommandRepo {
	return &CommandRepo{pool: pool}
}

// Claim inserts the key row inside tx. While another transaction holds an
// uncommitted claim on the same key the insert waits on the primary key; once
// that transaction commits the insert fails with a unique violation, reported
// as domain.ErrDuplicateCommand.
func (r *CommandRepo) Claim(ctx context.Context, tx pgx.Tx, key string, op domain.Operation, now time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO command_log (command_key, operation, created_at) VALUES ($1, $2, $3)`,
		key, op, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCommand
		}
		return fmt.Errorf("claim command: %w", translate(err))
	}
	return nil
}

// Complete stores the result of a key claimed in the same tx.
func (r *CommandRepo) Complete(ctx context.Context, tx pgx.Tx, rec *domain.CommandRecord) error {
	tag, err := tx.Exec(ctx,
		`UPDATE command_log SET resource_id = $2, result = $3 WHERE command_key = $1`,
		rec.Key, rec.ResourceID, rec.Result)
	if err != nil {
		return fmt.Errorf("complete command: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete command %s: not claimed", rec.Key)
	}
	return nil
}

// Get returns the committed record of key, or nil, nil if there is none.
func (r *CommandRepo) Get(ctx context.Context, key string) (*domain.CommandRecord, error) {
	rec := &domain.CommandRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT command_key, operation, resource_id, result, created_at
		 FROM command_log WHERE command_key = $1 AND result IS NOT NULL`, key).
		Scan(&rec.Key, &rec.Operation, &rec.ResourceID, &rec.Result, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get command: %w", translate(err))
	}
	return rec, nil
}

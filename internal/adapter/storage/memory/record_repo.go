package memory

import (
	"context"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MintRepo implements ports.MintRepository over a Store.
type MintRepo struct {
	s *Store
}

// Create stages m; it is published when tx commits.
func (r *MintRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Mint) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.mints = append(t.mints, *m)
	return ctx.Err()
}

func (r *MintRepo) List(ctx context.Context) ([]domain.Mint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	mints := append([]domain.Mint(nil), r.s.mints...)
	r.s.mu.RUnlock()

	sortByCreation(mints, func(m domain.Mint) time.Time { return m.CreatedAt })
	return mints, nil
}

// TransferRepo implements ports.TransferRepository over a Store.
type TransferRepo struct {
	s *Store
}

// Create stages tr; it is published when tx commits.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, tr *domain.Transfer) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}
	t.transfers = append(t.transfers, *tr)
	return ctx.Err()
}

func (r *TransferRepo) List(ctx context.Context) ([]domain.Transfer, error) {
	return r.list(ctx, func(domain.Transfer) bool { return true })
}

func (r *TransferRepo) ListFor(ctx context.Context, owner domain.Identity) ([]domain.Transfer, error) {
	return r.list(ctx, func(tr domain.Transfer) bool { return tr.Involves(owner) })
}

func (r *TransferRepo) list(ctx context.Context, keep func(domain.Transfer) bool) ([]domain.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	var transfers []domain.Transfer
	for _, tr := range r.s.transfers {
		if keep(tr) {
			transfers = append(transfers, tr)
		}
	}
	r.s.mu.RUnlock()

	sortByCreation(transfers, func(tr domain.Transfer) time.Time { return tr.CreatedAt })
	return transfers, nil
}

// AuditRepo implements ports.AuditRepository over a Store.
type AuditRepo struct {
	s *Store
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

// List returns the journal in append order.
func (r *AuditRepo) List(ctx context.Context) ([]domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditEntry(nil), r.s.audits...), nil
}

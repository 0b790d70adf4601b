package memory

import (
	"context"
	"sort"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository over a Store.
type WalletRepo struct {
	s *Store
}

// GetOrCreate creates the wallet immediately, outside any transaction.
func (r *WalletRepo) GetOrCreate(ctx context.Context, owner domain.Identity) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[owner]
	if !ok {
		w = *domain.NewWallet(owner, r.s.now())
		r.s.wallets[owner] = w
	}
	return &w, nil
}

// GetOrCreateForUpdate locks owner's wallet for the rest of tx. A wallet
// created here only becomes visible when tx commits.
func (r *WalletRepo) GetOrCreateForUpdate(ctx context.Context, tx pgx.Tx, owner domain.Identity) (*domain.Wallet, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if w, ok := t.staged[owner]; ok {
		cp := *w
		return &cp, nil
	}

	l, err := r.s.acquire(ctx, walletLock(owner))
	if err != nil {
		return nil, err
	}
	t.held[walletLock(owner)] = l

	w, ok := r.s.committedWallet(owner)
	if !ok {
		w = *domain.NewWallet(owner, r.s.now())
	}
	t.staged[owner] = &w

	cp := w
	return &cp, nil
}

func (r *WalletRepo) Get(ctx context.Context, owner domain.Identity) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, ok := r.s.committedWallet(owner)
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// List returns a snapshot of all wallets ordered by owner.
func (r *WalletRepo) List(ctx context.Context) ([]domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	wallets := make([]domain.Wallet, 0, len(r.s.wallets))
	for _, w := range r.s.wallets {
		wallets = append(wallets, w)
	}
	r.s.mu.RUnlock()

	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Owner < wallets[j].Owner })
	return wallets, nil
}

// ApplyDelta changes the staged balance of a wallet locked by tx.
func (r *WalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, owner domain.Identity, delta decimal.Decimal) (*domain.Wallet, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, ok := t.staged[owner]
	if !ok {
		return nil, domain.ErrWalletNotLocked
	}
	balance := w.Balance.Add(delta)
	if balance.IsNegative() {
		return nil, domain.ErrNegativeBalance
	}
	w.Balance = balance
	w.UpdatedAt = r.s.now()

	cp := *w
	return &cp, nil
}

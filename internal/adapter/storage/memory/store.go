// Package memory is an in-process WalletStore backend. Writes are staged per
// transaction and applied in one step on commit, so readers only ever see
// committed state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// DefaultLockWait bounds how long a transaction waits for a wallet lock.
const DefaultLockWait = 2 * time.Second

// Store holds committed ledger state and hands out transactions.
type Store struct {
	mu        sync.RWMutex
	wallets   map[domain.Identity]domain.Wallet
	mints     []domain.Mint
	transfers []domain.Transfer
	audits    []domain.AuditEntry
	commands  map[string]domain.CommandRecord

	lockMu   sync.Mutex
	locks    map[string]chan struct{}
	lockWait time.Duration

	now func() time.Time
}

// NewStore creates an empty store. A non-positive lockWait selects DefaultLockWait.
func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Store{
		wallets:  make(map[domain.Identity]domain.Wallet),
		commands: make(map[string]domain.CommandRecord),
		locks:    make(map[string]chan struct{}),
		lockWait: lockWait,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Begin starts a transaction. It implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:  s,
		held:   make(map[string]chan struct{}),
		staged: make(map[domain.Identity]*domain.Wallet),
		claims: make(map[string]*domain.CommandRecord),
	}, nil
}

// Wallets returns the store's ports.WalletRepository view.
func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

// Mints returns the store's ports.MintRepository view.
func (s *Store) Mints() *MintRepo { return &MintRepo{s: s} }

// Transfers returns the store's ports.TransferRepository view.
func (s *Store) Transfers() *TransferRepo { return &TransferRepo{s: s} }

// Audits returns the store's ports.AuditRepository view.
func (s *Store) Audits() *AuditRepo { return &AuditRepo{s: s} }

// Commands returns the store's ports.CommandLogRepository view.
func (s *Store) Commands() *CommandRepo { return &CommandRepo{s: s} }

// Ping implements ports.HealthChecker. The store is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}

// Lock names. Wallets and command keys share one lock table.
func walletLock(owner domain.Identity) string { return "wallet/" + string(owner) }
func commandLock(key string) string { return "command/" + key }

// lockFor returns the named semaphore, creating it on first use.
func (s *Store) lockFor(name string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.locks[name]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[name] = l
	}
	return l
}

func (s *Store) acquire(ctx context.Context, name string) (chan struct{}, error) {
	l := s.lockFor(name)

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()

	select {
	case l <- struct{}{}:
		return l, nil
	case <-timer.C:
		return nil, domain.ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// apply publishes everything tx staged, or nothing.
func (s *Store) apply(t *Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range t.staged {
		if w.Balance.IsNegative() {
			return domain.ErrNegativeBalance
		}
	}
	for key := range t.claims {
		if _, done := s.commands[key]; done {
			return domain.ErrDuplicateCommand
		}
	}

	for owner, w := range t.staged {
		merged := *w
		if existing, ok := s.wallets[owner]; ok {
			merged.CreatedAt = existing.CreatedAt
		}
		s.wallets[owner] = merged
	}
	s.mints = append(s.mints, t.mints...)
	s.transfers = append(s.transfers, t.transfers...)
	for key, rec := range t.claims {
		s.commands[key] = *rec
	}
	return nil
}

func (s *Store) committedWallet(owner domain.Identity) (domain.Wallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[owner]
	return w, ok
}

func (s *Store) committedCommand(key string) (domain.CommandRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.commands[key]
	return rec, ok
}

func sortByCreation[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).Before(createdAt(items[j]))
	})
}

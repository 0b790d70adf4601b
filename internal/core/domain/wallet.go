package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the single balance account of an Identity. Created on first
// touch, never deleted. Balance is never negative once committed.
type Wallet struct {
	Owner     Identity        `json:"owner"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet creates an empty wallet for owner.
func NewWallet(owner Identity, now time.Time) *Wallet {
	return &Wallet{
		Owner:     owner,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanDebit reports whether amount can be taken without going negative.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

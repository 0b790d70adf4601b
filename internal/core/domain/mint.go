package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mint records new supply issued into a wallet. It has no source wallet and
// is the only record that changes the total balance of the system.
type Mint struct {
	ID        uuid.UUID       `json:"id"`
	Issuer    Identity        `json:"issuer"`
	Recipient Identity        `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewMint builds an immutable mint record.
func NewMint(issuer, recipient Identity, amount decimal.Decimal, now time.Time) *Mint {
	return &Mint{
		ID:        uuid.New(),
		Issuer:    issuer,
		Recipient: recipient,
		Amount:    amount,
		CreatedAt: now,
	}
}

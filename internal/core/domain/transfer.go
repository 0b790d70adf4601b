package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferKind tells which side initiated a balance move.
type TransferKind string

const (
	// TransferKindTransfer is initiated by the sender.
	TransferKindTransfer TransferKind = "TRANSFER"
	// TransferKindCharge is initiated by the recipient, naming the payer.
	TransferKindCharge TransferKind = "CHARGE"
)

// Transfer records a balance-conserving move between two wallets.
type Transfer struct {
	ID        uuid.UUID       `json:"id"`
	Sender    Identity        `json:"sender"`
	Recipient Identity        `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      TransferKind    `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewTransfer builds an immutable transfer record.
func NewTransfer(sender, recipient Identity, amount decimal.Decimal, kind TransferKind, now time.Time) *Transfer {
	return &Transfer{
		ID:        uuid.New(),
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Kind:      kind,
		CreatedAt: now,
	}
}

// Involves reports whether id is the sender or the recipient.
func (t *Transfer) Involves(id Identity) bool {
	return t.Sender == id || t.Recipient == id
}

// Initiator returns the identity that requested the move.
func (t *Transfer) Initiator() Identity {
	if t.Kind == TransferKindCharge {
		return t.Recipient
	}
	return t.Sender
}

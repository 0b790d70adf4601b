package ports

import (
	"context"
	"time"

	"chat-ledger/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// SignatureService signs and verifies bridge requests with the shared bridge secret.
type SignatureService interface {
	Sign(req SignedRequest) string
	Verify(req SignedRequest, signature string) bool
}

// SignedRequest is the part of a bridge request covered by its signature.
type SignedRequest struct {
	Method    string
	Path      string
	Timestamp int64
	Nonce     string
	Caller    string
	Body      []byte
}

// CommandCache is the fast replay path in front of CommandLogRepository.
type CommandCache interface {
	// Recall returns the cached record of key, or nil, nil on a miss.
	Recall(ctx context.Context, key string) (*domain.CommandRecord, error)
	Remember(ctx context.Context, rec *domain.CommandRecord, ttl time.Duration) error
}

// NonceStore remembers which bridge nonces were already spent.
type NonceStore interface {
	// Consume marks nonce as spent by caller. For a nonce seen before it
	// returns fresh=false and the caller that spent it first.
	Consume(ctx context.Context, bridgeKey, nonce, caller string) (fresh bool, firstCaller string, err error)
}

// AuditService journals mutating attempts. Log must not block the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditEntry)
}

// AuthorizationPolicy decides which identities may run which operations.
type AuthorizationPolicy interface {
	IsStaff(id domain.Identity) bool
	// Authorize returns an AUTH_001 AppError if actor may not run op.
	Authorize(op domain.Operation, actor domain.Identity) error
}

// --- Service Ports (Business Logic) ---

// LedgerService defines the ledger commands and queries. Callers and
// counterparties are passed as raw handles; the service normalizes them.
type LedgerService interface {
	ShowWallet(ctx context.Context, caller string) (*domain.Wallet, error)
	ListWallets(ctx context.Context, caller string) ([]domain.Wallet, error)
	// LookupWallet returns another identity's wallet without creating it.
	LookupWallet(ctx context.Context, caller, owner string) (*domain.Wallet, error)
	ListMints(ctx context.Context, caller string) ([]domain.Mint, error)
	// ListTransfers returns every transfer for staff, the caller's own otherwise.
	ListTransfers(ctx context.Context, caller string) ([]domain.Transfer, error)
	Mint(ctx context.Context, req MintRequest) (*domain.Mint, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transfer, error)
	Charge(ctx context.Context, req TransferRequest) (*domain.Transfer, error)
}

// MintRequest holds raw input for issuing new supply.
type MintRequest struct {
	Caller        string
	AmountText    string
	RecipientText string
	CommandID     string // optional chat update id, enables replay protection
}

// TransferRequest holds raw input for a transfer or a charge.
// For a transfer the caller pays the counterparty; for a charge the
// counterparty pays the caller.
type TransferRequest struct {
	Caller           string
	AmountText       string
	CounterpartyText string
	CommandID        string
}

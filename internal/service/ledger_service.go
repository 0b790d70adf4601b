package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat-ledger/config"
	"chat-ledger/internal/core/domain"
	"chat-ledger/internal/core/ports"
	"chat-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// unitFunc is the body of one atomic unit. It runs inside tx and must not commit.
type unitFunc func(ctx context.Context, tx pgx.Tx) error

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	walletRepo   ports.WalletRepository
	mintRepo     ports.MintRepository
	transferRepo ports.TransferRepository
	commandRepo  ports.CommandLogRepository // optional
	transactor   ports.DBTransactor
	policy       ports.AuthorizationPolicy
	cmdCache     ports.CommandCache // optional
	auditSvc     ports.AuditService // optional
	cfg          config.LedgerConfig
	now          func() time.Time
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl. commandRepo, cmdCache and
// auditSvc may be nil; without commandRepo command ids are not deduplicated.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	mintRepo ports.MintRepository,
	transferRepo ports.TransferRepository,
	commandRepo ports.CommandLogRepository,
	transactor ports.DBTransactor,
	policy ports.AuthorizationPolicy,
	cmdCache ports.CommandCache,
	auditSvc ports.AuditService,
	cfg config.LedgerConfig,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo:   walletRepo,
		mintRepo:     mintRepo,
		transferRepo: transferRepo,
		commandRepo:  commandRepo,
		transactor:   transactor,
		policy:       policy,
		cmdCache:     cmdCache,
		auditSvc:     auditSvc,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log,
	}
}

// ==================== Queries ====================

// ShowWallet returns the caller's wallet, creating an empty one on first use.
func (s *LedgerServiceImpl) ShowWallet(ctx context.Context, caller string) (*domain.Wallet, error) {
	id, err := s.authorize(domain.OpShowWallet, caller)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	wallet, err := s.walletRepo.GetOrCreate(ctx, id)
	if err != nil {
		return nil, classify(fmt.Errorf("get or create wallet: %w", err))
	}
	return wallet, nil
}

// ListWallets returns every wallet. Staff only.
func (s *LedgerServiceImpl) ListWallets(ctx context.Context, caller string) ([]domain.Wallet, error) {
	if _, err := s.authorize(domain.OpListWallets, caller); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	wallets, err := s.walletRepo.List(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("list wallets: %w", err))
	}
	return wallets, nil
}

// LookupWallet returns the wallet of owner. Staff only. Unlike ShowWallet it
// never creates a wallet.
func (s *LedgerServiceImpl) LookupWallet(ctx context.Context, caller, owner string) (*domain.Wallet, error) {
	if _, err := s.authorize(domain.OpLookupWallet, caller); err != nil {
		return nil, err
	}
	id, err := parseIdentity(owner)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	wallet, err := s.walletRepo.Get(ctx, id)
	if err != nil {
		return nil, classify(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListMints returns every mint record in creation order. Staff only.
func (s *LedgerServiceImpl) ListMints(ctx context.Context, caller string) ([]domain.Mint, error) {
	if _, err := s.authorize(domain.OpListMints, caller); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	mints, err := s.mintRepo.List(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("list mints: %w", err))
	}
	return mints, nil
}

// ListTransfers returns every transfer for staff and the caller's own transfers otherwise.
func (s *LedgerServiceImpl) ListTransfers(ctx context.Context, caller string) ([]domain.Transfer, error) {
	id, err := parseIdentity(caller)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var transfers []domain.Transfer
	if s.policy.IsStaff(id) {
		if err := s.policy.Authorize(domain.OpListAllTransfers, id); err != nil {
			return nil, err
		}
		transfers, err = s.transferRepo.List(ctx)
	} else {
		if err := s.policy.Authorize(domain.OpListOwnTransfers, id); err != nil {
			return nil, err
		}
		transfers, err = s.transferRepo.ListFor(ctx, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("list transfers: %w", err))
	}
	return transfers, nil
}

// ==================== Commands ====================

// Mint issues new supply into the recipient's wallet, creating it if needed.
func (s *LedgerServiceImpl) Mint(ctx context.Context, req ports.MintRequest) (mint *domain.Mint, err error) {
	defer func() {
		var resourceID string
		if mint != nil {
			resourceID = mint.ID.String()
		}
		s.journal(ctx, domain.OpMint, req.Caller, req.RecipientText, req.AmountText, resourceID, err)
	}()

	amount, err := parseAmount(req.AmountText)
	if err != nil {
		return nil, err
	}
	recipient, err := parseIdentity(req.RecipientText)
	if err != nil {
		return nil, err
	}
	// Authorization precedes any write so a denied mint leaves no wallet behind.
	issuer, err := s.authorize(domain.OpMint, req.Caller)
	if err != nil {
		return nil, err
	}

	key := commandKey(domain.OpMint, issuer, req.CommandID)
	replayed := &domain.Mint{}
	if s.lookup(ctx, key, replayed) {
		return replayed, nil
	}

	var (
		created *domain.Mint
		record  *domain.CommandRecord
	)
	err = s.runUnit(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.claim(ctx, tx, domain.OpMint, key); err != nil {
			return err
		}
		if _, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, recipient); err != nil {
			return fmt.Errorf("lock recipient wallet: %w", err)
		}
		if _, err := s.walletRepo.ApplyDelta(ctx, tx, recipient, amount); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}
		m := domain.NewMint(issuer, recipient, amount, s.now())
		if err := s.mintRepo.Create(ctx, tx, m); err != nil {
			return fmt.Errorf("create mint: %w", err)
		}
		rec, err := s.complete(ctx, tx, domain.OpMint, key, m.ID, m)
		if err != nil {
			return err
		}
		created, record = m, rec
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateCommand) {
		if err := s.replay(ctx, key, replayed); err != nil {
			return nil, err
		}
		return replayed, nil
	}
	if err != nil {
		return nil, err
	}

	s.remember(ctx, record)

	s.log.Info().
		Str("mint_id", created.ID.String()).
		Str("issuer", issuer.String()).
		Str("recipient", recipient.String()).
		Str("amount", amount.String()).
		Msg("mint committed")

	return created, nil
}

// Transfer moves amount from the caller to the counterparty.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transfer, error) {
	return s.move(ctx, domain.OpTransfer, req)
}

// Charge moves amount from the counterparty to the caller.
func (s *LedgerServiceImpl) Charge(ctx context.Context, req ports.TransferRequest) (*domain.Transfer, error) {
	return s.move(ctx, domain.OpCharge, req)
}

func (s *LedgerServiceImpl) move(ctx context.Context, op domain.Operation, req ports.TransferRequest) (transfer *domain.Transfer, err error) {
	defer func() {
		var resourceID string
		if transfer != nil {
			resourceID = transfer.ID.String()
		}
		s.journal(ctx, op, req.Caller, req.CounterpartyText, req.AmountText, resourceID, err)
	}()

	amount, err := parseAmount(req.AmountText)
	if err != nil {
		return nil, err
	}
	caller, err := parseIdentity(req.Caller)
	if err != nil {
		return nil, err
	}
	counterparty, err := parseIdentity(req.CounterpartyText)
	if err != nil {
		return nil, err
	}
	if caller == counterparty {
		return nil, apperror.ErrInvalidOperation("sender and recipient must differ")
	}
	if err := s.policy.Authorize(op, caller); err != nil {
		return nil, err
	}

	sender, recipient, kind := caller, counterparty, domain.TransferKindTransfer
	if op == domain.OpCharge {
		sender, recipient, kind = counterparty, caller, domain.TransferKindCharge
	}

	key := commandKey(op, caller, req.CommandID)
	replayed := &domain.Transfer{}
	if s.lookup(ctx, key, replayed) {
		return replayed, nil
	}

	var (
		created *domain.Transfer
		record  *domain.CommandRecord
	)
	err = s.runUnit(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// The claim precedes the balance check so a redelivery that lost the
		// race replays the first result instead of failing on the new balance.
		if err := s.claim(ctx, tx, op, key); err != nil {
			return err
		}
		locked := make(map[domain.Identity]*domain.Wallet, 2)
		first, second := domain.OrderPair(sender, recipient)
		for _, owner := range []domain.Identity{first, second} {
			w, err := s.walletRepo.GetOrCreateForUpdate(ctx, tx, owner)
			if err != nil {
				return fmt.Errorf("lock wallet %s: %w", owner, err)
			}
			locked[owner] = w
		}

		if !locked[sender].CanDebit(amount) {
			return apperror.ErrInsufficientBalance()
		}
		if _, err := s.walletRepo.ApplyDelta(ctx, tx, sender, amount.Neg()); err != nil {
			return fmt.Errorf("debit sender: %w", err)
		}
		if _, err := s.walletRepo.ApplyDelta(ctx, tx, recipient, amount); err != nil {
			return fmt.Errorf("credit recipient: %w", err)
		}

		t := domain.NewTransfer(sender, recipient, amount, kind, s.now())
		if err := s.transferRepo.Create(ctx, tx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		rec, err := s.complete(ctx, tx, op, key, t.ID, t)
		if err != nil {
			return err
		}
		created, record = t, rec
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateCommand) {
		if err := s.replay(ctx, key, replayed); err != nil {
			return nil, err
		}
		return replayed, nil
	}
	if err != nil {
		return nil, err
	}

	s.remember(ctx, record)

	s.log.Info().
		Str("transfer_id", created.ID.String()).
		Str("kind", string(kind)).
		Str("sender", sender.String()).
		Str("recipient", recipient.String()).
		Str("amount", amount.String()).
		Msg("transfer committed")

	return created, nil
}

// ==================== Atomic units ====================

// runUnit executes fn as one transaction. Once started, the unit is detached
// from the caller's cancellation and bounded only by the operation timeout, so
// it either commits or rolls back entirely. domain.ErrDuplicateCommand is
// returned as is; every other error is classified.
func (s *LedgerServiceImpl) runUnit(ctx context.Context, fn unitFunc) error {
	if err := ctx.Err(); err != nil {
		return apperror.ErrTimeout(err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancel()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, fn)
		if !errors.Is(err, domain.ErrConflict) || attempt >= s.cfg.MaxRetries {
			break
		}

		s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("ledger unit conflicted, retrying")

		select {
		case <-ctx.Done():
			return apperror.ErrTimeout(ctx.Err())
		case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
	if errors.Is(err, domain.ErrDuplicateCommand) {
		return domain.ErrDuplicateCommand
	}
	return classify(err)
}

func (s *LedgerServiceImpl) attempt(ctx context.Context, fn unitFunc) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// classify maps storage and context failures onto AppErrors. AppErrors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrConflict):
		return apperror.ErrBusy(err)
	case errors.Is(err, domain.ErrNegativeBalance):
		return apperror.ErrInsufficientBalance()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperror.ErrTimeout(err)
	default:
		return apperror.ErrStorageFailure(err)
	}
}

// ==================== Helpers ====================

func (s *LedgerServiceImpl) authorize(op domain.Operation, caller string) (domain.Identity, error) {
	id, err := parseIdentity(caller)
	if err != nil {
		return "", err
	}
	if err := s.policy.Authorize(op, id); err != nil {
		return "", err
	}
	return id, nil
}

func parseIdentity(raw string) (domain.Identity, error) {
	id, err := domain.ParseIdentity(raw)
	if err != nil {
		return "", apperror.ErrInvalidIdentity(raw)
	}
	return id, nil
}

func parseAmount(text string) (decimal.Decimal, error) {
	amount, err := domain.ParseAmount(text)
	if err != nil {
		return decimal.Zero, apperror.Validation(err.Error())
	}
	return amount, nil
}

// commandKey returns "" when the command carries no id, disabling replay protection.
func commandKey(op domain.Operation, caller domain.Identity, commandID string) string {
	if commandID == "" {
		return ""
	}
	return domain.BuildCommandKey(op, caller, commandID)
}

// lookup decodes the result of an already executed command into dst. The
// cache is consulted first, then the command log; failures of either only
// cost a trip into the unit, where the claim decides.
func (s *LedgerServiceImpl) lookup(ctx context.Context, key string, dst any) bool {
	if key == "" {
		return false
	}

	if s.cmdCache != nil {
		rec, err := s.cmdCache.Recall(ctx, key)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", key).Msg("command cache lookup failed, checking command log")
		case rec.Completed():
			if err := json.Unmarshal(rec.Result, dst); err == nil {
				s.log.Debug().Str("key", key).Msg("replayed cached command result")
				return true
			}
			s.log.Warn().Str("key", key).Msg("discarding undecodable cached result")
		}
	}

	if s.commandRepo == nil {
		return false
	}
	rec, err := s.commandRepo.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("command log lookup failed, executing command")
		return false
	}
	if !rec.Completed() {
		return false
	}
	if err := json.Unmarshal(rec.Result, dst); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("undecodable command log result")
		return false
	}
	s.remember(ctx, rec)
	s.log.Debug().Str("key", key).Msg("replayed logged command result")
	return true
}

// claim reserves key for the running unit. Commands without an id are not recorded.
func (s *LedgerServiceImpl) claim(ctx context.Context, tx pgx.Tx, op domain.Operation, key string) error {
	if key == "" || s.commandRepo == nil {
		return nil
	}
	if err := s.commandRepo.Claim(ctx, tx, key, op, s.now()); err != nil {
		return fmt.Errorf("claim command: %w", err)
	}
	return nil
}

// complete stores result under the key claimed in tx.
func (s *LedgerServiceImpl) complete(ctx context.Context, tx pgx.Tx, op domain.Operation, key string, resourceID uuid.UUID, result any) (*domain.CommandRecord, error) {
	if key == "" {
		return nil, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode command result: %w", err)
	}
	rec := &domain.CommandRecord{
		Key:        key,
		Operation:  op,
		ResourceID: resourceID,
		Result:     data,
		CreatedAt:  s.now(),
	}
	if s.commandRepo != nil {
		if err := s.commandRepo.Complete(ctx, tx, rec); err != nil {
			return nil, fmt.Errorf("complete command: %w", err)
		}
	}
	return rec, nil
}

// replay loads the result committed by the delivery that won the claim on key.
func (s *LedgerServiceImpl) replay(ctx context.Context, key string, dst any) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancel()

	rec, err := s.commandRepo.Get(ctx, key)
	if err != nil {
		return classify(fmt.Errorf("load command result: %w", err))
	}
	if !rec.Completed() {
		return apperror.ErrStorageFailure(fmt.Errorf("command %s committed without a result", key))
	}
	if err := json.Unmarshal(rec.Result, dst); err != nil {
		return apperror.ErrStorageFailure(fmt.Errorf("decode command result: %w", err))
	}

	s.log.Info().Str("key", key).Msg("duplicate command answered from command log")
	s.remember(ctx, rec)
	return nil
}

func (s *LedgerServiceImpl) remember(ctx context.Context, rec *domain.CommandRecord) {
	if rec == nil || s.cmdCache == nil {
		return
	}
	if err := s.cmdCache.Remember(context.WithoutCancel(ctx), rec, s.cfg.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", rec.Key).Msg("failed to cache command result")
	}
}

// journal emits the outcome of a mutating attempt to the operation journal.
func (s *LedgerServiceImpl) journal(ctx context.Context, op domain.Operation, caller, counterparty, amount, resourceID string, err error) {
	if s.auditSvc == nil {
		return
	}

	outcome := domain.AuditOutcomeSuccess
	if err != nil {
		outcome = apperror.CodeOf(err)
		if outcome == "" {
			outcome = apperror.CodeStorageFailure
		}
	}

	details, _ := json.Marshal(map[string]string{
		"counterparty": counterparty,
		"amount":       amount,
	})

	s.auditSvc.Log(ctx, &domain.AuditEntry{
		ID:         uuid.New(),
		Actor:      domain.Normalize(caller),
		Action:     op,
		Outcome:    outcome,
		ResourceID: resourceID,
		Details:    string(details),
		CreatedAt:  s.now(),
	})
}

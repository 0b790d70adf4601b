package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-ledger/config"
	httpHandler "chat-ledger/internal/adapter/http/handler"
	"chat-ledger/internal/adapter/storage/memory"
	pgStorage "chat-ledger/internal/adapter/storage/postgres"
	redisStorage "chat-ledger/internal/adapter/storage/redis"
	"chat-ledger/internal/core/ports"
	"chat-ledger/internal/service"
	"chat-ledger/pkg/logger"

	"github.com/rs/zerolog"
)

// storage bundles the ledger repositories of one backend.
type storage struct {
	wallets    ports.WalletRepository
	mints      ports.MintRepository
	transfers  ports.TransferRepository
	commands   ports.CommandLogRepository
	audits     ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, balances are lost on restart")
		store := memory.NewStore(cfg.Ledger.LockTimeout)
		return &storage{
			wallets:    store.Wallets(),
			mints:      store.Mints(),
			transfers:  store.Transfers(),
			commands:   store.Commands(),
			audits:     store.Audits(),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil

	case config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := pgStorage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("Database schema applied")
		}
		return &storage{
			wallets:    pgStorage.NewWalletRepo(pool),
			mints:      pgStorage.NewMintRepo(pool),
			transfers:  pgStorage.NewTransferRepo(pool),
			commands:   pgStorage.NewCommandRepo(pool),
			audits:     pgStorage.NewAuditRepository(pool),
			transactor: pgStorage.NewTransactor(pool, cfg.Ledger.LockTimeout),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CLG_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting chat ledger")

	if cfg.Bridge.Key == "" || cfg.Bridge.Secret == "" {
		log.Fatal().Msg("bridge.key and bridge.secret must be set")
	}

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger storage")
	}
	defer store.close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	policy, err := service.NewStaffPolicy(cfg.Ledger.Staff)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid staff list")
	}
	log.Info().Int("staff", len(cfg.Ledger.Staff)).Msg("Staff policy loaded")

	auditSvc := service.NewAuditService(store.audits, logger.Component(log, "audit"))
	ledgerSvc := service.NewLedgerService(
		store.wallets,
		store.mints,
		store.transfers,
		store.commands,
		store.transactor,
		policy,
		redisStorage.NewCommandCache(rdb, cfg.Redis.Namespace),
		auditSvc,
		cfg.Ledger,
		logger.Component(log, "ledger"),
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		SigSvc:         service.NewBridgeSigner(cfg.Bridge.Secret),
		NonceStore:     redisStorage.NewNonceStore(rdb, cfg.Redis.Namespace, cfg.Bridge.NonceTTL),
		Bridge:         cfg.Bridge,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{store.health, redisStorage.NewHealth(rdb)},
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// In-flight units finish within the operation timeout; give them that long.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ledger.OperationTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

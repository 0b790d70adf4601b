package handler

import (
	"chat-ledger/config"
	"chat-ledger/internal/adapter/http/middleware"
	redisStore "chat-ledger/internal/adapter/storage/redis"
	"chat-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	Bridge         config.BridgeConfig
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode; empty = release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	bridgeAuth := middleware.BridgeAuth(deps.Bridge, deps.SigSvc, deps.NonceStore, deps.Logger)
	h := NewLedgerHandler(deps.LedgerSvc)

	v1 := r.Group("/api/v1", bridgeAuth)

	queries := v1.Group("", rl("queries"))
	{
		queries.GET("/wallets/me", h.ShowWallet)
		queries.GET("/wallets", h.ListWallets)
		queries.GET("/wallets/:owner", h.LookupWallet)
		queries.GET("/mints", h.ListMints)
		queries.GET("/transfers", h.ListTransfers)
	}

	commands := v1.Group("", rl("commands"))
	{
		commands.POST("/mints", h.Mint)
		commands.POST("/transfers", h.Transfer)
		commands.POST("/charges", h.Charge)
	}

	return r
}

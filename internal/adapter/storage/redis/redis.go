package redis

import (
	"context"
	"fmt"
	"strings"

	"chat-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultNamespace = "ledger"

// NewClient creates a Redis client for the ledger's caches and verifies
// connectivity. The client is closed again if the first ping fails.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Str("namespace", namespaceOrDefault(cfg.Namespace)).
		Msg("Redis connection established")

	return client, nil
}

// keyspace joins key segments under a namespace, e.g. "ledger:cmd:@alice/msg-1".
type keyspace string

func newKeyspace(namespace, kind string) keyspace {
	return keyspace(namespaceOrDefault(namespace) + ":" + kind)
}

func (k keyspace) key(parts ...string) string {
	return string(k) + ":" + strings.Join(parts, ":")
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return defaultNamespace
	}
	return ns
}

// Health reports whether the caching Redis answers. A failing cache degrades
// the ledger without stopping it, but /health still surfaces it.
type Health struct {
	client *goredis.Client
}

// NewHealth implements ports.HealthChecker for the cache client.
func NewHealth(client *goredis.Client) *Health {
	return &Health{client: client}
}

func (h *Health) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (h *Health) Name() string {
	return "redis"
}

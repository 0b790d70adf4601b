package redis

import (
	"context"
	"fmt"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// CommandCache implements ports.CommandCache. Each committed command is kept
// as a hash so a replay can be answered without touching the command log.
type CommandCache struct {
	client *goredis.Client
	keys   keyspace
}

// NewCommandCache creates a cache of committed command outcomes.
func NewCommandCache(client *goredis.Client, namespace string) *CommandCache {
	return &CommandCache{client: client, keys: newKeyspace(namespace, "cmd")}
}

// Recall returns the cached outcome of key, or nil, nil on a miss. A hash
// missing its result field is treated as a miss.
func (c *CommandCache) Recall(ctx context.Context, key string) (*domain.CommandRecord, error) {
	fields, err := c.client.HGetAll(ctx, c.keys.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis command recall: %w", err)
	}
	if fields["result"] == "" {
		return nil, nil
	}

	rec := &domain.CommandRecord{
		Key:       key,
		Operation: domain.Operation(fields["op"]),
		Result:    []byte(fields["result"]),
	}
	if rec.ResourceID, err = uuid.Parse(fields["resource_id"]); err != nil {
		return nil, fmt.Errorf("redis command recall %s: resource id: %w", key, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("redis command recall %s: created at: %w", key, err)
	}
	return rec, nil
}

// Remember caches a completed command for ttl. Incomplete records are ignored.
func (c *CommandCache) Remember(ctx context.Context, rec *domain.CommandRecord, ttl time.Duration) error {
	if !rec.Completed() {
		return nil
	}
	k := c.keys.key(rec.Key)
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, k,
			"op", string(rec.Operation),
			"resource_id", rec.ResourceID.String(),
			"result", string(rec.Result),
			"created_at", rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis command remember: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore. A nonce is bound to the caller of
// its first signed request, so a replay can be attributed in the logs.
type NonceStore struct {
	client *goredis.Client
	keys   keyspace
	ttl    time.Duration
}

// NewNonceStore creates a nonce store that remembers nonces for ttl, which
// should cover the accepted clock drift on both sides.
func NewNonceStore(client *goredis.Client, namespace string, ttl time.Duration) *NonceStore {
	return &NonceStore{client: client, keys: newKeyspace(namespace, "nonce"), ttl: ttl}
}

// Consume records nonce for bridgeKey on behalf of caller. It reports
// fresh=false with the first caller when the nonce was already used.
func (s *NonceStore) Consume(ctx context.Context, bridgeKey, nonce, caller string) (bool, string, error) {
	key := s.keys.key(bridgeKey, nonce)
	set, err := s.client.SetNX(ctx, key, caller, s.ttl).Result()
	if err != nil {
		return false, "", fmt.Errorf("redis nonce consume: %w", err)
	}
	if set {
		return true, "", nil
	}

	first, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Expired between the two calls; still a replay.
			return false, "", nil
		}
		return false, "", fmt.Errorf("redis nonce owner: %w", err)
	}
	return false, first, nil
}

package redis

import (
	"context"
	"testing"
	"time"

	"chat-ledger/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CommandCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCommandCache(client, ""), s
}

func transferRecord(key string) *domain.CommandRecord {
	return &domain.CommandRecord{
		Key:        key,
		Operation:  domain.OpTransfer,
		ResourceID: uuid.New(),
		Result:     []byte(`{"sender":"bobby","recipient":"carol_c","amount":"120"}`),
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 123456000, time.UTC),
	}
}

func TestCommandCache_RememberAndRecall(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	key := domain.BuildCommandKey(domain.OpTransfer, "bobby", "update-1001")

	got, err := cache.Recall(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := transferRecord(key)
	require.NoError(t, cache.Remember(ctx, rec, 24*time.Hour))

	got, err = cache.Recall(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, domain.OpTransfer, got.Operation)
	assert.Equal(t, rec.ResourceID, got.ResourceID)
	assert.Equal(t, rec.Result, got.Result)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	// Stored as a hash under the ledger namespace.
	hkey := "ledger:cmd:transfer:bobby:update-1001"
	assert.Equal(t, "transfer", s.HGet(hkey, "op"))
	assert.Greater(t, s.TTL(hkey), time.Duration(0))
}

func TestCommandCache_Namespace(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()
	cache := NewCommandCache(client, "staging")

	require.NoError(t, cache.Remember(context.Background(), transferRecord("mint:alice_admin:7"), time.Hour))
	assert.True(t, s.Exists("staging:cmd:mint:alice_admin:7"))
}

func TestCommandCache_Expiry(t *testing.T) {
	cache, s := newTestCache(t)
	ctx := context.Background()
	key := domain.BuildCommandKey(domain.OpMint, "alice_admin", "update-7")

	require.NoError(t, cache.Remember(ctx, transferRecord(key), time.Second))
	s.FastForward(2 * time.Second)

	got, err := cache.Recall(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "expired record should be a miss")
}

func TestCommandCache_IgnoresIncompleteRecord(t *testing.T) {
	cache, s := newTestCache(t)
	rec := transferRecord("charge:carol_c:3")
	rec.Result = nil

	require.NoError(t, cache.Remember(context.Background(), rec, time.Hour))
	assert.Empty(t, s.Keys())
}

func TestCommandCache_CorruptEntry(t *testing.T) {
	cache, s := newTestCache(t)
	s.HSet("ledger:cmd:mint:alice_admin:1", "op", "mint", "result", "{}", "resource_id", "not-a-uuid")

	_, err := cache.Recall(context.Background(), "mint:alice_admin:1")
	assert.ErrorContains(t, err, "resource id")
}

func TestCommandCache_Unavailable(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	cache := NewCommandCache(client, "")
	s.Close()

	_, err := cache.Recall(context.Background(), "mint:alice_admin:1")
	assert.ErrorContains(t, err, "redis command recall")

	err = cache.Remember(context.Background(), transferRecord("mint:alice_admin:1"), time.Hour)
	assert.ErrorContains(t, err, "redis command remember")
}

package redis

import (
	"context"
	"strconv"
	"testing"

	"chat-ledger/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, s *miniredis.Miniredis) config.RedisConfig {
	t.Helper()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	return config.RedisConfig{Host: s.Host(), Port: port, PoolSize: 2}
}

func TestRedisAddr(t *testing.T) {
	cfg := config.RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), testConfig(t, s), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	health := NewHealth(client)
	assert.NoError(t, health.Ping(context.Background()))
	assert.Equal(t, "redis", health.Name())

	s.Close()
	assert.ErrorContains(t, health.Ping(context.Background()), "redis ping")
}

func TestKeyspace(t *testing.T) {
	assert.Equal(t, "ledger:cmd:mint:alice_admin:7", newKeyspace("", "cmd").key("mint:alice_admin:7"))
	assert.Equal(t, "staging:nonce:bridge-tg:n1", newKeyspace("staging", "nonce").key("bridge-tg", "n1"))
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := testConfig(t, s)
	s.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")
}

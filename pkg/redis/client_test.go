package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/querycompiler/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(ErrKeyNotFound))
	assert.True(t, IsNilError(redis.Nil))
	assert.True(t, IsNilError(fmt.Errorf("cache get: %w", ErrKeyNotFound)))
	assert.False(t, IsNilError(errors.New("connection refused")))
	assert.False(t, IsNilError(nil))
}

// Runs only when a Redis server is reachable, e.g. TEST_REDIS_ADDR=localhost:6379.
func TestNewClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	assert.ErrorContains(t, err, "connecting to redis at 127.0.0.1:1")
}

func TestClientRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(context.Background(), config.RedisConfig{Addr: addr, PoolSize: 2})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "qc-test:a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "qc-test:b", []byte("2"), time.Minute))

	v, err := c.Get(ctx, "qc-test:a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	n, err := c.FlushByPattern(ctx, "qc-test:*")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = c.Get(ctx, "qc-test:a")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())
	assert.Equal(t, 20, cfg.PoolSize)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "invalid-host-that-does-not-exist"
	cfg.DialTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewClient(ctx, cfg)
	assert.Error(t, err)
}

func TestClient_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}

	ctx := context.Background()
	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "test:key", "v", time.Minute).Err())
	got, err := client.Get(ctx, "test:key").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, client.Del(ctx, "test:key").Err())
	_, err = client.Get(ctx, "test:key").Result()
	assert.ErrorIs(t, err, Nil)
}

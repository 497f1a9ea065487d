package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qtc-mcp-server/internal/domain"
)

// getTestRedis returns a cache for testing.
// Skip test if TEST_REDIS_URL is not set.
func getTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	cache, err := NewRedisCache(context.Background(), domain.CacheConfig{
		RedisURL:   redisURL,
		DefaultTTL: time.Minute,
		PoolSize:   2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), domain.CacheConfig{RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestRedisCache_SetGet(t *testing.T) {
	cache := getTestRedis(t)
	ctx := context.Background()

	record := sampleRecord("redis-test-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, cache.Set(ctx, record))
	defer cache.Delete(ctx, record.ID)

	got, ok, err := cache.Get(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.Formula, got.Formula)
	assert.Equal(t, *record.QTc, *got.QTc)
}

func TestRedisCache_Miss(t *testing.T) {
	cache := getTestRedis(t)

	got, ok, err := cache.Get(context.Background(), "redis-test-missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

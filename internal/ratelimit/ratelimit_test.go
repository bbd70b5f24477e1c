package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := NewLimiter(LimiterParam{Redis: rdb, Log: zap.NewNop()})
	return limiter, srv
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	companyID := node.Generate()

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(context.Background(), companyID, 5)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(context.Background(), companyID, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowKeysArePerCompanyAndExpire(t *testing.T) {
	limiter, srv := newTestLimiter(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	first := node.Generate()
	second := node.Generate()

	ok, err := limiter.Allow(context.Background(), first, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	// A different company has its own counter.
	ok, err = limiter.Allow(context.Background(), second, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(context.Background(), first, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Day buckets carry a TTL so old counters fall away.
	for _, key := range srv.Keys() {
		assert.Greater(t, srv.TTL(key), time.Duration(0), key)
	}
}

func TestAllowResetsOnNewDay(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	companyID := node.Generate()

	day := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	limiter.now = func() time.Time { return day }

	ok, err := limiter.Allow(context.Background(), companyID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = limiter.Allow(context.Background(), companyID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	limiter.now = func() time.Time { return day.Add(2 * time.Minute) }
	ok, err = limiter.Allow(context.Background(), companyID, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowPassesWithoutRedis(t *testing.T) {
	limiter := NewLimiter(LimiterParam{Log: zap.NewNop()})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ok, err := limiter.Allow(context.Background(), node.Generate(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowPassesWhenRedisUnreachable(t *testing.T) {
	limiter, srv := newTestLimiter(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	srv.Close()

	ok, err := limiter.Allow(context.Background(), node.Generate(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client), mr
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests within limit", func(t *testing.T) {
		limiter, _ := newTestRateLimiter(t)

		for i := 0; i < 3; i++ {
			result := limiter.CheckLimit(ctx, "vote:user-1", 3, time.Minute)
			assert.True(t, result.Allowed, "request %d", i+1)
			assert.Equal(t, 3-i-1, result.Remaining)
		}

		result := limiter.CheckLimit(ctx, "vote:user-1", 3, time.Minute)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.True(t, result.ResetAt.After(time.Now()))
	})

	t.Run("tracks keys separately", func(t *testing.T) {
		limiter, _ := newTestRateLimiter(t)

		for i := 0; i < 2; i++ {
			limiter.CheckLimit(ctx, "vote:user-a", 2, time.Minute)
		}

		assert.False(t, limiter.CheckLimit(ctx, "vote:user-a", 2, time.Minute).Allowed)
		assert.True(t, limiter.CheckLimit(ctx, "vote:user-b", 2, time.Minute).Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		limiter, _ := newTestRateLimiter(t)
		clock := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return clock }

		assert.True(t, limiter.CheckLimit(ctx, "login:1.2.3.4", 1, time.Minute).Allowed)
		assert.False(t, limiter.CheckLimit(ctx, "login:1.2.3.4", 1, time.Minute).Allowed)

		clock = clock.Add(61 * time.Second)
		assert.True(t, limiter.CheckLimit(ctx, "login:1.2.3.4", 1, time.Minute).Allowed)
	})

	t.Run("uses the ratelimit key namespace", func(t *testing.T) {
		limiter, mr := newTestRateLimiter(t)

		limiter.CheckLimit(ctx, "vote:user-1", 5, time.Minute)

		assert.True(t, mr.Exists("ratelimit:vote:user-1"))
	})

	t.Run("denies when redis is down", func(t *testing.T) {
		limiter, mr := newTestRateLimiter(t)
		mr.Close()

		result := limiter.CheckLimit(ctx, "vote:user-1", 5, time.Minute)
		require.False(t, result.Allowed)
	})
}

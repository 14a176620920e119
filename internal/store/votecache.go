package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisclient "github.com/aisessions/server/internal/redis"
)

// VoteCache remembers which topics a user voted for between store lifetimes.
// It is only a hint: the vote rows loaded during Init always win.
type VoteCache interface {
	Load(ctx context.Context, userID string) (map[string]bool, error)
	Save(ctx context.Context, userID string, voted map[string]bool) error
}

// RedisVoteCache keeps one JSON object per user mapping topic id to true.
type RedisVoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisVoteCache(client *redis.Client, ttl time.Duration) *RedisVoteCache {
	return &RedisVoteCache{client: client, ttl: ttl}
}

func (c *RedisVoteCache) Load(ctx context.Context, userID string) (map[string]bool, error) {
	raw, err := c.client.Get(ctx, redisclient.VoteCacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote cache: %w", err)
	}

	voted := map[string]bool{}
	if err := json.Unmarshal(raw, &voted); err != nil {
		return nil, fmt.Errorf("decode vote cache: %w", err)
	}
	return voted, nil
}

func (c *RedisVoteCache) Save(ctx context.Context, userID string, voted map[string]bool) error {
	payload := make(map[string]bool, len(voted))
	for id, ok := range voted {
		if ok {
			payload[id] = true
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode vote cache: %w", err)
	}
	if err := c.client.Set(ctx, redisclient.VoteCacheKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set vote cache: %w", err)
	}
	return nil
}

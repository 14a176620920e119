package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Client holds the per-user vote cache keys and rate limit windows.
type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

// Ping is the health check for the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// VoteCacheKey holds the JSON topic_id -> true map for one user.
func VoteCacheKey(userID string) string {
	return "votes:" + userID
}

// RateLimitKey namespaces a limiter key such as "api:<userID>" or
// "login:<ip>".
func RateLimitKey(key string) string {
	return "ratelimit:" + key
}

package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"portal/internal/app/config"
)

const jwtPrefix = "jwt."

// Client keeps revoked access tokens until they would have expired anyway.
type Client struct {
	client *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Username:    cfg.User,
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cant ping redis: %w", err)
	}
	return &Client{client: client}, nil
}

// NewWithClient wraps an existing connection.
func NewWithClient(client *redis.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// WriteJWTToBlacklist revokes token for ttl.
func (c *Client) WriteJWTToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, jwtPrefix+token, true, ttl).Err()
}

// IsBlacklisted reports whether token was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	err := c.client.Get(ctx, jwtPrefix+token).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check jwt blacklist: %w", err)
	}
	return true, nil
}

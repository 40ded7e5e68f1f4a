package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/claim_idempotency.lua
var claimIdempotencyScript string

//go:embed scripts/release_idempotency.lua
var releaseIdempotencyScript string

// inFlight marks an idempotency key whose first request has not finished yet
const inFlight = "__in_flight__"

const defaultIdempotencyTTL = 24 * time.Hour

type Client struct {
	rdb           *redis.Client
	claimScript   *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		claimScript:   redis.NewScript(claimIdempotencyScript),
		releaseScript: redis.NewScript(releaseIdempotencyScript),
	}, nil
}

// Ping checks Redis connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:reservation:%s", key)
}

// Claim atomically takes an idempotency key. When the key is already taken it
// returns claimed=false and the stored result, or "" while the first request is in flight.
func (c *Client) Claim(ctx context.Context, key string, ttl time.Duration) (bool, string, error) {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	result, err := c.claimScript.Run(ctx, c.rdb, []string{idempotencyKey(key)}, inFlight, ttl.Milliseconds()).Result()
	if err != nil {
		return false, "", fmt.Errorf("claim idempotency script failed: %w", err)
	}

	claimed, value, err := parseClaimResult(result)
	if err != nil {
		return false, "", err
	}
	if value == inFlight {
		value = ""
	}
	return claimed, value, nil
}

func parseClaimResult(result interface{}) (bool, string, error) {
	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return false, "", fmt.Errorf("unexpected script result: %v", result)
	}
	flag, ok := parts[0].(int64)
	if !ok {
		return false, "", fmt.Errorf("unexpected script result type")
	}
	value, _ := parts[1].(string)
	return flag == 1, value, nil
}

// Complete stores the outcome of a finished request under its key
func (c *Client) Complete(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// Release frees a key whose request failed so the caller may retry
func (c *Client) Release(ctx context.Context, key string) error {
	if err := c.releaseScript.Run(ctx, c.rdb, []string{idempotencyKey(key)}, inFlight).Err(); err != nil {
		return fmt.Errorf("release idempotency script failed: %w", err)
	}
	return nil
}

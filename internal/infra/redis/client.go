package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis operations used to coordinate runs across hosts.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration. An empty URL disables Redis.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	Prefix   string        `yaml:"prefix"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "sqllogs"
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func lockKey(prefix, vault string) string {
	return fmt.Sprintf("%s:lock:%s", prefix, vault)
}

func lastRunKey(prefix, vault string) string {
	return fmt.Sprintf("%s:last_run:%s", prefix, vault)
}

// RecordRun stores the id and finish time of the last successful cycle.
func (c *Client) RecordRun(ctx context.Context, vault, runID string, at time.Time) error {
	err := c.rdb.HSet(ctx, lastRunKey(c.prefix, vault),
		"run_id", runID,
		"finished_at", strconv.FormatInt(at.Unix(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	return nil
}

// LastRun returns the last recorded cycle, found is false when none exists.
func (c *Client) LastRun(ctx context.Context, vault string) (runID string, at time.Time, found bool, err error) {
	vals, err := c.rdb.HGetAll(ctx, lastRunKey(c.prefix, vault)).Result()
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("hgetall failed: %w", err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(vals["finished_at"], 10, 64)
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("invalid finished_at: %w", err)
	}
	return vals["run_id"], time.Unix(secs, 0), true, nil
}

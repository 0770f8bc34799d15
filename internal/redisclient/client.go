package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// Well-known keys for the cross-client sync snapshot. Both frontends'
	// backends read and write these.
	snapshotKey   = "orders:snapshot"
	snapshotTSKey = "orders:snapshot:ts"

	// Channel carrying relayed realtime events between service instances.
	EventsChannel = "realtime:events"

	// Channel used as the fast-path "something changed" nudge that races
	// the sync bridge's poll loop.
	SyncNotifyChannel = "orders:sync"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Publish sends a payload to a pub/sub channel. Fire-and-forget callers
// ignore the error after logging it.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription on the given channels. The caller
// owns the returned subscription and must Close it.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

// WriteSnapshot stores the shared order snapshot and bumps the last-write
// timestamp in one pipeline.
func (c *Client) WriteSnapshot(ctx context.Context, blob []byte, ts time.Time) error {
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, snapshotKey, blob, 0)
	pipe.Set(ctx, snapshotTSKey, ts.UnixMilli(), 0)
	_, err := pipe.Exec(ctx)
	return err
}

// ReadSnapshot returns the snapshot blob. A missing key yields a nil blob,
// not an error.
func (c *Client) ReadSnapshot(ctx context.Context) ([]byte, error) {
	blob, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return blob, err
}

// SnapshotTimestamp returns the last-write timestamp, zero if never written.
func (c *Client) SnapshotTimestamp(ctx context.Context) (time.Time, error) {
	ms, err := c.rdb.Get(ctx, snapshotTSKey).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

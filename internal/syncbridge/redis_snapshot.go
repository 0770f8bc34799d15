package syncbridge

import (
	"context"
	"time"

	"pizza-platform/internal/redisclient"
)

// RedisSnapshot adapts the Redis client to the SnapshotStore interface. The
// snapshot blob and timestamp live under well-known keys shared by both
// frontends' backends; the nudge channel is the cross-process analogue of
// cross-window messaging.
type RedisSnapshot struct {
	client *redisclient.Client
}

// NewRedisSnapshot wraps a Redis client.
func NewRedisSnapshot(client *redisclient.Client) *RedisSnapshot {
	return &RedisSnapshot{client: client}
}

func (r *RedisSnapshot) WriteSnapshot(ctx context.Context, blob []byte, ts time.Time) error {
	return r.client.WriteSnapshot(ctx, blob, ts)
}

func (r *RedisSnapshot) ReadSnapshot(ctx context.Context) ([]byte, error) {
	return r.client.ReadSnapshot(ctx)
}

func (r *RedisSnapshot) SnapshotTimestamp(ctx context.Context) (time.Time, error) {
	return r.client.SnapshotTimestamp(ctx)
}

func (r *RedisSnapshot) NotifyChanged(ctx context.Context) error {
	return r.client.Publish(ctx, redisclient.SyncNotifyChannel, []byte("changed"))
}

// ChangeNotifications subscribes to the nudge channel for the lifetime of
// the context.
func (r *RedisSnapshot) ChangeNotifications(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)
	sub := r.client.Subscribe(ctx, redisclient.SyncNotifyChannel)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}

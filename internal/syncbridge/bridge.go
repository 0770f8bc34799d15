// Package syncbridge keeps independently hosted frontends consistent when
// the realtime channel is unavailable. One authoritative store, one derived
// snapshot with a last-write timestamp, an explicit poll interval, and a
// pub/sub nudge racing the poll. The snapshot is never the source of truth.
package syncbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pizza-platform/internal/models"
	"pizza-platform/internal/status"
	"pizza-platform/internal/util"

	"go.uber.org/zap"
)

// OrderSource is the authoritative store the bridge writes through to.
type OrderSource interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, order *models.Order) error
	AllOrders(ctx context.Context) ([]models.Order, error)
}

// SnapshotStore holds the derived all-orders snapshot and carries change
// nudges between processes.
type SnapshotStore interface {
	WriteSnapshot(ctx context.Context, blob []byte, ts time.Time) error
	ReadSnapshot(ctx context.Context) ([]byte, error)
	SnapshotTimestamp(ctx context.Context) (time.Time, error)
	NotifyChanged(ctx context.Context) error
	ChangeNotifications(ctx context.Context) <-chan struct{}
}

// Bridge is the fallback synchronization layer.
type Bridge struct {
	store        OrderSource
	snap         SnapshotStore
	machine      status.Machine
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.Mutex
	lastSeen  time.Time
	callbacks map[int64]func([]models.Order)
	nextSub   int64
}

// New creates a bridge polling at the given interval (clamped to 1s–10s).
func New(store OrderSource, snap SnapshotStore, machine status.Machine, pollInterval time.Duration) *Bridge {
	if pollInterval < time.Second {
		pollInterval = time.Second
	}
	if pollInterval > 10*time.Second {
		pollInterval = 10 * time.Second
	}
	return &Bridge{
		store:        store,
		snap:         snap,
		machine:      machine,
		pollInterval: pollInterval,
		logger:       util.GetLogger(),
		callbacks:    make(map[int64]func([]models.Order)),
	}
}

// SaveOrder writes through to the authoritative store. A store failure
// propagates and leaves the snapshot untouched; a snapshot failure after a
// successful store write is logged, the save still succeeds.
func (b *Bridge) SaveOrder(ctx context.Context, order *models.Order) (int64, error) {
	if err := b.store.CreateOrder(ctx, order); err != nil {
		return 0, fmt.Errorf("authoritative order write failed: %w", err)
	}
	b.Refresh(ctx)
	return order.ID, nil
}

// UpdateOrderStatus applies a transition through the state machine and the
// authoritative store, then refreshes the snapshot. Returns false with an
// error when the transition is rejected or the store write fails.
func (b *Bridge) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus string) (bool, error) {
	order, err := b.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return false, err
	}
	if err := b.machine.Apply(order, newStatus); err != nil {
		return false, err
	}
	if err := b.store.UpdateOrderStatus(ctx, order); err != nil {
		return false, fmt.Errorf("authoritative status write failed: %w", err)
	}
	b.Refresh(ctx)
	return true, nil
}

// GetOrders returns all known orders, preferring the snapshot and falling
// back to the authoritative store when no snapshot exists yet.
func (b *Bridge) GetOrders(ctx context.Context) ([]models.Order, error) {
	blob, err := b.snap.ReadSnapshot(ctx)
	if err != nil {
		b.logger.Warn("Snapshot read failed, falling back to store", zap.Error(err))
		return b.store.AllOrders(ctx)
	}
	if blob == nil {
		return b.store.AllOrders(ctx)
	}

	var orders []models.Order
	if err := json.Unmarshal(blob, &orders); err != nil {
		b.logger.Warn("Corrupt snapshot, falling back to store", zap.Error(err))
		return b.store.AllOrders(ctx)
	}
	return orders, nil
}

// Refresh rebuilds the snapshot from the authoritative store and nudges
// other pollers. Best-effort: failures are logged, never propagated.
func (b *Bridge) Refresh(ctx context.Context) {
	orders, err := b.store.AllOrders(ctx)
	if err != nil {
		util.SnapshotWriteFailures.Inc()
		b.logger.Warn("Snapshot refresh: store read failed", zap.Error(err))
		return
	}

	blob, err := json.Marshal(orders)
	if err != nil {
		util.SnapshotWriteFailures.Inc()
		b.logger.Error("Snapshot refresh: marshal failed", zap.Error(err))
		return
	}

	ts := time.Now()
	if err := b.snap.WriteSnapshot(ctx, blob, ts); err != nil {
		util.SnapshotWriteFailures.Inc()
		b.logger.Warn("Snapshot write failed", zap.Error(err))
		return
	}
	util.SnapshotWritesTotal.Inc()

	// Writers have already seen their own change.
	b.mu.Lock()
	b.lastSeen = ts
	b.mu.Unlock()

	if err := b.snap.NotifyChanged(ctx); err != nil {
		b.logger.Debug("Change nudge failed, pollers will catch up", zap.Error(err))
	}
}

// Subscribe registers a callback invoked with the full order list whenever
// the snapshot advances. The returned function unsubscribes.
func (b *Bridge) Subscribe(callback func([]models.Order)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	b.callbacks[id] = callback
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.callbacks, id)
	}
}

// Run polls the snapshot timestamp until the context is cancelled. Change
// nudges trigger an immediate check; the ticker bounds staleness to the
// poll interval either way.
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	nudges := b.snap.ChangeNotifications(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkOnce(ctx)
		case _, ok := <-nudges:
			if !ok {
				nudges = nil
				continue
			}
			b.checkOnce(ctx)
		}
	}
}

func (b *Bridge) checkOnce(ctx context.Context) {
	util.SyncPollCycles.Inc()

	ts, err := b.snap.SnapshotTimestamp(ctx)
	if err != nil {
		b.logger.Debug("Snapshot timestamp check failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	stale := ts.After(b.lastSeen)
	if stale {
		b.lastSeen = ts
	}
	b.mu.Unlock()

	if !stale {
		return
	}

	orders, err := b.GetOrders(ctx)
	if err != nil {
		b.logger.Warn("Snapshot re-pull failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	cbs := make([]func([]models.Order), 0, len(b.callbacks))
	for _, cb := range b.callbacks {
		cbs = append(cbs, cb)
	}
	b.mu.Unlock()

	for _, cb := range cbs {
		cb(orders)
	}
}

package syncbridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pizza-platform/internal/models"
	"pizza-platform/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[int64]*models.Order
	nextID    int64
	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int64]*models.Order)}
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeStore) AllOrders(_ context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

type fakeSnapshot struct {
	mu     sync.Mutex
	blob   []byte
	ts     time.Time
	nudges chan struct{}
}

func newFakeSnapshot() *fakeSnapshot {
	return &fakeSnapshot{nudges: make(chan struct{}, 8)}
}

func (f *fakeSnapshot) WriteSnapshot(_ context.Context, blob []byte, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blob = blob
	f.ts = ts
	return nil
}

func (f *fakeSnapshot) ReadSnapshot(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blob, nil
}

func (f *fakeSnapshot) SnapshotTimestamp(_ context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ts, nil
}

func (f *fakeSnapshot) NotifyChanged(_ context.Context) error {
	select {
	case f.nudges <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSnapshot) ChangeNotifications(_ context.Context) <-chan struct{} {
	return f.nudges
}

func pendingOrder() *models.Order {
	return &models.Order{
		OrderNumber:   "PZ-1001",
		UserID:        1,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		TotalAmount:   503.70,
	}
}

func TestSaveOrderWritesThroughAndSnapshots(t *testing.T) {
	store := newFakeStore()
	snap := newFakeSnapshot()
	bridge := New(store, snap, status.Machine{}, time.Second)

	id, err := bridge.SaveOrder(context.Background(), pendingOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	assert.NotNil(t, snap.blob, "snapshot should be written after a successful save")
	assert.False(t, snap.ts.IsZero())
}

func TestSaveOrderPropagatesStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("db down")
	snap := newFakeSnapshot()
	bridge := New(store, snap, status.Machine{}, time.Second)

	_, err := bridge.SaveOrder(context.Background(), pendingOrder())
	require.Error(t, err)

	// The derived cache must not claim a write that never happened.
	assert.Nil(t, snap.blob)
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	store := newFakeStore()
	snap := newFakeSnapshot()
	bridge := New(store, snap, status.Machine{}, time.Second)

	id, err := bridge.SaveOrder(context.Background(), pendingOrder())
	require.NoError(t, err)

	ok, err := bridge.UpdateOrderStatus(context.Background(), id, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bridge.UpdateOrderStatus(context.Background(), id, models.OrderStatusPending)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestGetOrdersFallsBackToStoreWithoutSnapshot(t *testing.T) {
	store := newFakeStore()
	snap := newFakeSnapshot()
	bridge := New(store, snap, status.Machine{}, time.Second)

	require.NoError(t, store.CreateOrder(context.Background(), pendingOrder()))

	orders, err := bridge.GetOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestSubscriberNotifiedOnNudge(t *testing.T) {
	store := newFakeStore()
	snap := newFakeSnapshot()

	writer := New(store, snap, status.Machine{}, time.Second)
	reader := New(store, snap, status.Machine{}, time.Second)

	got := make(chan []models.Order, 1)
	unsubscribe := reader.Subscribe(func(orders []models.Order) {
		select {
		case got <- orders:
		default:
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reader.Run(ctx)

	_, err := writer.SaveOrder(context.Background(), pendingOrder())
	require.NoError(t, err)

	select {
	case orders := <-got:
		require.Len(t, orders, 1)
		assert.Equal(t, "PZ-1001", orders[0].OrderNumber)
	case <-time.After(3 * time.Second):
		t.Fatal("subscriber was never notified")
	}
}

func TestUnsubscribeStopsCallbacks(t *testing.T) {
	store := newFakeStore()
	snap := newFakeSnapshot()
	bridge := New(store, snap, status.Machine{}, time.Second)

	calls := 0
	unsubscribe := bridge.Subscribe(func([]models.Order) { calls++ })
	unsubscribe()

	// Force a newer timestamp and poll once directly.
	require.NoError(t, snap.WriteSnapshot(context.Background(), []byte("[]"), time.Now()))
	bridge.checkOnce(context.Background())

	assert.Zero(t, calls)
}

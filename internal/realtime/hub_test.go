package realtime

import (
	"testing"
	"time"

	"pizza-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, conn *Conn) models.RealtimeEvent {
	t.Helper()
	select {
	case ev := <-conn.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.RealtimeEvent{}
	}
}

func TestAdminRoomReceivesNewOrder(t *testing.T) {
	hub := NewHub()

	staff := hub.Connect()
	defer staff.Close()
	hub.Subscribe(staff, TopicAdminRoom)

	order := &models.Order{ID: 42, OrderNumber: "PZ-1042"}
	hub.Publish(TopicAdminRoom, models.EventNewOrder, &models.NewOrderPayload{Order: order})

	ev := receiveEvent(t, staff)
	assert.Equal(t, models.EventNewOrder, ev.Name)
	assert.Equal(t, TopicAdminRoom, ev.Topic)

	payload, ok := ev.Payload.(*models.NewOrderPayload)
	require.True(t, ok)
	assert.Equal(t, int64(42), payload.Order.ID)
}

func TestTopicsAreIsolated(t *testing.T) {
	hub := NewHub()

	alice := hub.Connect()
	defer alice.Close()
	bob := hub.Connect()
	defer bob.Close()

	hub.Subscribe(alice, UserTopic(1))
	hub.Subscribe(bob, UserTopic(2))

	hub.Publish(UserTopic(1), models.EventOrderStatusChanged, &models.StatusChangedPayload{OrderID: 7})

	ev := receiveEvent(t, alice)
	assert.Equal(t, UserTopic(1), ev.Topic)

	select {
	case ev := <-bob.Events():
		t.Fatalf("bob should not receive events for user-1, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishToEmptyTopicIsNoop(t *testing.T) {
	hub := NewHub()
	// Must not panic or block.
	hub.Publish(TopicKitchen, models.EventNewOrder, nil)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	defer conn.Close()

	hub.Subscribe(conn, OrderTopic(9))
	hub.Unsubscribe(conn, OrderTopic(9))

	hub.Publish(OrderTopic(9), models.EventOrderUpdated, nil)

	select {
	case <-conn.Events():
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseUnsubscribesEverywhere(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	hub.Subscribe(conn, TopicAdminRoom)
	hub.Subscribe(conn, TopicKitchen)
	hub.Subscribe(conn, UserTopic(5))

	conn.Close()
	// Close again must be safe.
	conn.Close()

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.topics)

	_, open := <-conn.Events()
	assert.False(t, open)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	defer conn.Close()
	hub.Subscribe(conn, TopicKitchen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < connBuffer*3; i++ {
			hub.Publish(TopicKitchen, models.EventNewOrder, i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

// Package realtime implements the topic-based fan-out bus. Delivery is
// at-most-once and best-effort: disconnected or slow clients miss events and
// reconcile with a full fetch when they come back.
package realtime

import (
	"fmt"
	"sync"
	"time"

	"pizza-platform/internal/models"
	"pizza-platform/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic names
const (
	TopicAdminRoom = "admin-room"
	TopicKitchen   = "kitchen"
	TopicInventory = "inventory-updates"
)

// UserTopic is the per-customer topic for their own order updates.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// OrderTopic is the per-order tracking topic.
func OrderTopic(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// connBuffer bounds how far a slow consumer can lag before events drop.
const connBuffer = 32

// Conn is an explicitly owned client connection. It is created by
// Hub.Connect, joined to topics through the hub, and torn down with Close,
// which unsubscribes it everywhere.
type Conn struct {
	id     string
	hub    *Hub
	events chan models.RealtimeEvent

	mu     sync.Mutex
	topics map[string]struct{}
	closed bool
}

// ID returns the connection's identifier.
func (c *Conn) ID() string {
	return c.id
}

// Events is the stream the transport layer drains.
func (c *Conn) Events() <-chan models.RealtimeEvent {
	return c.events
}

// Topics returns the topics this connection is currently joined to.
func (c *Conn) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// Close unsubscribes the connection from every topic and closes its event
// stream. Safe to call more than once.
func (c *Conn) Close() {
	c.hub.disconnect(c)
}

// Hub routes events to subscribed connections.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Conn]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Conn]struct{}),
		logger: util.GetLogger(),
	}
}

// Connect registers a new connection with no subscriptions.
func (h *Hub) Connect() *Conn {
	conn := &Conn{
		id:     uuid.New().String(),
		hub:    h,
		events: make(chan models.RealtimeEvent, connBuffer),
		topics: make(map[string]struct{}),
	}
	util.StreamConnections.Inc()
	return conn
}

// Subscribe joins a connection to a topic. Authorization for privileged
// topics happens in the transport layer before this is called.
func (h *Hub) Subscribe(conn *Conn, topic string) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.topics[topic] = struct{}{}
	conn.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Conn]struct{})
		h.topics[topic] = subs
	}
	subs[conn] = struct{}{}
}

// Unsubscribe removes a connection from a topic.
func (h *Hub) Unsubscribe(conn *Conn, topic string) {
	conn.mu.Lock()
	delete(conn.topics, topic)
	conn.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn, topic)
}

func (h *Hub) removeLocked(conn *Conn, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

func (h *Hub) disconnect(conn *Conn) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	topics := make([]string, 0, len(conn.topics))
	for t := range conn.topics {
		topics = append(topics, t)
	}
	conn.topics = make(map[string]struct{})
	conn.mu.Unlock()

	h.mu.Lock()
	for _, t := range topics {
		h.removeLocked(conn, t)
	}
	h.mu.Unlock()

	close(conn.events)
	util.StreamConnections.Dec()
}

// Publish delivers an event to every subscriber of a topic without ever
// blocking the caller. A full client buffer drops the event for that client.
// Publishing to a topic with no subscribers is a no-op, not an error.
func (h *Hub) Publish(topic string, name string, payload interface{}) {
	event := models.RealtimeEvent{
		Name:      name,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.topics[topic] {
		select {
		case conn.events <- event:
			util.FanoutEventsPublished.WithLabelValues(name).Inc()
		default:
			util.FanoutEventsDropped.WithLabelValues(name).Inc()
			h.logger.Debug("Dropped realtime event for slow client",
				zap.String("conn_id", conn.id),
				zap.String("topic", topic),
				zap.String("event", name))
		}
	}
}

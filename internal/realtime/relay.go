package realtime

import (
	"context"
	"encoding/json"
	"time"

	"pizza-platform/internal/models"
	"pizza-platform/internal/redisclient"
	"pizza-platform/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// relayMessage is the wire envelope on the Redis events channel. Origin lets
// an instance skip messages it published itself.
type relayMessage struct {
	Origin string               `json:"origin"`
	Event  models.RealtimeEvent `json:"event"`
}

// Relay extends the in-process hub across separately deployed instances via
// Redis pub/sub. Local publishes also go out on the wire; a background loop
// feeds remote publishes into the local hub.
type Relay struct {
	hub    *Hub
	redis  *redisclient.Client
	origin string
	logger *zap.Logger
}

// NewRelay wraps a hub with a Redis bridge.
func NewRelay(hub *Hub, redis *redisclient.Client) *Relay {
	return &Relay{
		hub:    hub,
		redis:  redis,
		origin: uuid.New().String(),
		logger: util.GetLogger(),
	}
}

// Hub exposes the underlying hub for transports that manage connections.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Publish fans an event out locally and over the wire. Both paths are
// best-effort: a Redis failure is logged and swallowed, it never fails the
// triggering request.
func (r *Relay) Publish(ctx context.Context, topic, name string, payload interface{}) {
	r.hub.Publish(topic, name, payload)

	msg := relayMessage{
		Origin: r.origin,
		Event: models.RealtimeEvent{
			Name:      name,
			Topic:     topic,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	}

	blob, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("Failed to marshal relay message", zap.Error(err))
		return
	}

	if err := r.redis.Publish(ctx, redisclient.EventsChannel, blob); err != nil {
		r.logger.Warn("Failed to relay realtime event",
			zap.String("topic", topic),
			zap.String("event", name),
			zap.Error(err))
	}
}

// Run consumes the Redis events channel until the context is cancelled,
// replaying remote events into the local hub.
func (r *Relay) Run(ctx context.Context) {
	sub := r.redis.Subscribe(ctx, redisclient.EventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				r.logger.Warn("Dropping malformed relay message", zap.Error(err))
				continue
			}
			if relayed.Origin == r.origin {
				continue
			}
			r.hub.Publish(relayed.Event.Topic, relayed.Event.Name, relayed.Event.Payload)
		}
	}
}

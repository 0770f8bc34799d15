package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pizza-platform/internal/models"
	"pizza-platform/internal/realtime"
	"pizza-platform/internal/service"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 15 * time.Second

// StreamHandler exposes the fan-out hub over server-sent events. One
// connection per request; disconnecting unsubscribes from every topic.
type StreamHandler struct {
	hub    *realtime.Hub
	orders *service.OrderService
}

// NewStreamHandler creates the SSE transport for a hub.
func NewStreamHandler(hub *realtime.Hub, orders *service.OrderService) *StreamHandler {
	return &StreamHandler{hub: hub, orders: orders}
}

// Stream handles GET /events?topics=a,b,c. Every topic join is authorized
// against the principal's authoritative role before the stream opens.
func (sh *StreamHandler) Stream(c *gin.Context) {
	p := principal(c)

	raw := strings.TrimSpace(c.Query("topics"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_topics", "reason": "topics query parameter is required"})
		return
	}

	topics := strings.Split(raw, ",")
	for i, topic := range topics {
		topics[i] = strings.TrimSpace(topic)
	}
	for _, topic := range topics {
		if err := sh.authorizeJoin(c, p, topic); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "join_rejected", "topic": topic, "reason": err.Error()})
			return
		}
	}

	conn := sh.hub.Connect()
	defer conn.Close()
	for _, topic := range topics {
		sh.hub.Subscribe(conn, topic)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, ok := <-conn.Events():
			if !ok {
				return false
			}
			c.SSEvent(event.Name, event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		}
	})
}

// authorizeJoin enforces the topic authorization boundary. Staff topics need
// a staff role from the user table; user topics must match the principal;
// order topics require owner or staff.
func (sh *StreamHandler) authorizeJoin(c *gin.Context, p *models.User, topic string) error {
	switch {
	case topic == realtime.TopicAdminRoom, topic == realtime.TopicKitchen, topic == realtime.TopicInventory:
		if !p.IsStaff() {
			return fmt.Errorf("staff role required for %s", topic)
		}
		return nil

	case strings.HasPrefix(topic, "user-"):
		id, err := strconv.ParseInt(strings.TrimPrefix(topic, "user-"), 10, 64)
		if err != nil {
			return fmt.Errorf("malformed topic")
		}
		if id != p.ID && !p.IsStaff() {
			return fmt.Errorf("cannot join another user's topic")
		}
		return nil

	case strings.HasPrefix(topic, "order-"):
		id, err := strconv.ParseInt(strings.TrimPrefix(topic, "order-"), 10, 64)
		if err != nil {
			return fmt.Errorf("malformed topic")
		}
		if _, err := sh.orders.GetOrder(c.Request.Context(), p, id); err != nil {
			return fmt.Errorf("order tracking requires the order's owner or staff")
		}
		return nil
	}

	return fmt.Errorf("unknown topic")
}

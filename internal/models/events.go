package models

import "time"

// Realtime fan-out event names, matching what the frontends listen for.
const (
	EventNewOrder           = "new-order"
	EventOrderUpdated       = "order-updated"
	EventOrderStatusChanged = "order-status-changed"
	EventMenuUpdated        = "menu-updated"
	EventLowInventoryAlert  = "low-inventory-alert"
)

// RealtimeEvent is the envelope pushed to subscribed connections. Payload
// shape depends on Name; delivery is at-most-once with no replay, clients
// reconcile with a full fetch on reconnect.
type RealtimeEvent struct {
	Name      string      `json:"event"`
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewOrderPayload goes to admin-room and kitchen on order creation.
type NewOrderPayload struct {
	Order *Order `json:"order"`
	User  *User  `json:"user,omitempty"`
}

// OrderUpdatedPayload carries a full order snapshot to order-{id} trackers.
type OrderUpdatedPayload struct {
	Order *Order `json:"order"`
}

// StatusChangedPayload is the summary pushed to the owning customer.
type StatusChangedPayload struct {
	OrderID           int64     `json:"order_id"`
	OrderNumber       string    `json:"order_number"`
	Status            string    `json:"status"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// MenuUpdatedPayload is emitted by catalog management and only routed here.
type MenuUpdatedPayload struct {
	Action  string `json:"action"`
	Pizza   *Pizza `json:"pizza,omitempty"`
	PizzaID int64  `json:"pizza_id,omitempty"`
}

// LowInventoryPayload is emitted by inventory management and only routed here.
type LowInventoryPayload struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Kafka notification event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all notification events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published to the notification topic after checkout.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_number"`
	UserID      int64   `json:"user_id"`
	TotalAmount float64 `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

// OrderStatusChangedEvent is published after an accepted status transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID           int64     `json:"order_id"`
	OrderNumber       string    `json:"order_number"`
	UserID            int64     `json:"user_id"`
	OldStatus         string    `json:"old_status"`
	NewStatus         string    `json:"new_status"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

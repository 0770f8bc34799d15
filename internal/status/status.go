// Package status implements the order status state machine.
package status

import (
	"fmt"
	"time"

	"pizza-platform/internal/models"
)

// rank orders the forward progression. cancelled sits outside the
// progression and is reachable from any non-terminal state.
var rank = map[string]int{
	models.OrderStatusPending:        0,
	models.OrderStatusConfirmed:      1,
	models.OrderStatusPreparing:      2,
	models.OrderStatusBaking:         3,
	models.OrderStatusReady:          4,
	models.OrderStatusOutForDelivery: 5,
	models.OrderStatusDelivered:      6,
}

// IsTerminal reports whether no further transitions are allowed from s.
func IsTerminal(s string) bool {
	return s == models.OrderStatusDelivered || s == models.OrderStatusCancelled
}

// IsValid reports whether s is a known order status.
func IsValid(s string) bool {
	if s == models.OrderStatusCancelled {
		return true
	}
	_, ok := rank[s]
	return ok
}

// Machine validates and applies status transitions. AllowRollback is the
// staff-override policy: when set, backward moves between non-terminal
// states are accepted. It defaults to off.
type Machine struct {
	AllowRollback bool
}

// Validate checks a transition without applying it. The returned error
// carries a reason suitable for surfacing to staff clients.
func (m Machine) Validate(from, to string) error {
	if !IsValid(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	if IsTerminal(from) {
		return fmt.Errorf("order is already %s and cannot change status", from)
	}
	if to == models.OrderStatusCancelled {
		return nil
	}
	if from == to {
		return fmt.Errorf("order is already %s", from)
	}
	if rank[to] < rank[from] && !m.AllowRollback {
		return fmt.Errorf("cannot move order backwards from %s to %s", from, to)
	}
	return nil
}

// Apply validates the transition and mutates the order in place: status,
// updated_at, and delivered_at when entering delivered.
func (m Machine) Apply(order *models.Order, to string) error {
	if err := m.Validate(order.Status, to); err != nil {
		return err
	}
	now := time.Now()
	order.Status = to
	order.UpdatedAt = now
	if to == models.OrderStatusDelivered {
		order.DeliveredAt = &now
	}
	return nil
}

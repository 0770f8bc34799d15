package status

import (
	"testing"

	"pizza-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardTransitions(t *testing.T) {
	m := Machine{}
	steps := []string{
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusBaking,
		models.OrderStatusReady,
		models.OrderStatusOutForDelivery,
		models.OrderStatusDelivered,
	}

	order := &models.Order{Status: models.OrderStatusPending}
	for _, next := range steps {
		require.NoError(t, m.Apply(order, next))
		assert.Equal(t, next, order.Status)
	}
	require.NotNil(t, order.DeliveredAt)
}

func TestBackwardRejectedByDefault(t *testing.T) {
	m := Machine{}
	order := &models.Order{Status: models.OrderStatusPending}
	require.NoError(t, m.Apply(order, models.OrderStatusConfirmed))

	err := m.Apply(order, models.OrderStatusPending)
	assert.Error(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestBackwardAllowedWithOverride(t *testing.T) {
	m := Machine{AllowRollback: true}
	order := &models.Order{Status: models.OrderStatusPreparing}
	assert.NoError(t, m.Apply(order, models.OrderStatusConfirmed))
}

func TestTerminalStatesAreFinal(t *testing.T) {
	m := Machine{AllowRollback: true}

	delivered := &models.Order{Status: models.OrderStatusDelivered}
	cancelled := &models.Order{Status: models.OrderStatusCancelled}

	for _, target := range []string{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusCancelled,
		models.OrderStatusDelivered,
	} {
		assert.Error(t, m.Apply(delivered, target))
		assert.Error(t, m.Apply(cancelled, target))
	}
}

func TestCancelFromAnyNonTerminal(t *testing.T) {
	m := Machine{}
	for from := range rank {
		if IsTerminal(from) {
			continue
		}
		order := &models.Order{Status: from}
		assert.NoError(t, m.Apply(order, models.OrderStatusCancelled), "from %s", from)
	}
}

func TestSameStateIsCleanRejection(t *testing.T) {
	m := Machine{}
	order := &models.Order{Status: models.OrderStatusConfirmed}

	// Re-applying an already-applied transition must not corrupt anything.
	err := m.Apply(order, models.OrderStatusConfirmed)
	assert.Error(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
}

func TestUnknownStatusRejected(t *testing.T) {
	m := Machine{}
	order := &models.Order{Status: models.OrderStatusPending}
	assert.Error(t, m.Apply(order, "sideways"))
}

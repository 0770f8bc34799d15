package service

import (
	"regexp"
	"testing"

	"pizza-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testService() *OrderService {
	return &OrderService{logger: zap.NewNop()}
}

func catalogPizzas() map[int64]*models.Pizza {
	return map[int64]*models.Pizza{
		1: {
			ID:          1,
			Name:        "Margherita",
			Image:       "margherita.jpg",
			BasePrice:   299,
			Ingredients: []string{"tomato", "mozzarella", "basil"},
			Sizes: []models.SizeVariant{
				{Name: "medium", Multiplier: 1.3},
			},
		},
	}
}

func TestPriceItemsRecomputesFromCatalog(t *testing.T) {
	s := testService()

	items, err := s.priceItems([]OrderItemRequest{
		// Advisory unit price of 1 must be ignored for catalog items.
		{PizzaID: 1, Size: "medium", Quantity: 2, UnitPrice: 1},
	}, catalogPizzas())
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, 503.70, items[0].UnitPrice)
	assert.Equal(t, 1007.40, items[0].TotalPrice)
	assert.Equal(t, "Margherita", items[0].Name)
	assert.Equal(t, "margherita.jpg", items[0].Image)
}

func TestPriceItemsDegradedPathForDeletedPizza(t *testing.T) {
	s := testService()

	items, err := s.priceItems([]OrderItemRequest{
		{PizzaID: 99, Name: "Retired Special", Size: "small", Quantity: 1, UnitPrice: 200},
	}, map[int64]*models.Pizza{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Advisory price + small extra, no ingredient term.
	assert.Equal(t, 275.0, items[0].UnitPrice)
	assert.Equal(t, "Retired Special", items[0].Name)
}

func TestPriceItemsFailsWhenNothingResolves(t *testing.T) {
	s := testService()

	_, err := s.priceItems([]OrderItemRequest{
		{PizzaID: 99, Size: "small", Quantity: 1},
	}, map[int64]*models.Pizza{})

	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPriceItemsClampsQuantity(t *testing.T) {
	s := testService()

	items, err := s.priceItems([]OrderItemRequest{
		{PizzaID: 1, Size: "medium", Quantity: -5},
	}, catalogPizzas())
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, items[0].UnitPrice, items[0].TotalPrice)
}

func TestValidateCreateRequest(t *testing.T) {
	valid := &CreateOrderRequest{
		Items:         []OrderItemRequest{{PizzaID: 1, Quantity: 1}},
		PaymentMethod: "card",
		DeliveryAddress: models.DeliveryAddress{
			Street: "1 Main St", City: "Springfield", Phone: "555-0100",
		},
	}
	assert.NoError(t, validateCreateRequest(valid))

	noItems := *valid
	noItems.Items = nil
	assert.Error(t, validateCreateRequest(&noItems))

	noPayment := *valid
	noPayment.PaymentMethod = ""
	assert.Error(t, validateCreateRequest(&noPayment))

	noPhone := *valid
	noPhone.DeliveryAddress = models.DeliveryAddress{Street: "1 Main St", City: "Springfield"}
	assert.Error(t, validateCreateRequest(&noPhone))
}

func TestOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^PZ-\d{8}-[0-9A-F]{6}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		n := newOrderNumber()
		assert.Regexp(t, pattern, n)
		_, dup := seen[n]
		assert.False(t, dup, "order numbers must be unique: %s", n)
		seen[n] = struct{}{}
	}
}

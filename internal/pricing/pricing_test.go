package pricing

import (
	"testing"

	"pizza-platform/internal/models"

	"github.com/stretchr/testify/assert"
)

func margherita() *models.Pizza {
	return &models.Pizza{
		ID:          1,
		Name:        "Margherita",
		BasePrice:   299,
		Category:    models.CategoryVegetarian,
		Ingredients: []string{"tomato", "mozzarella", "basil"},
		Available:   true,
		Sizes: []models.SizeVariant{
			{Name: "small", Multiplier: 1.0},
			{Name: "medium", Multiplier: 1.3},
			{Name: "large", Multiplier: 1.6},
		},
	}
}

func TestUnitPriceMedium(t *testing.T) {
	// 299 × 1.3 + 3 × 10 + 85 = 503.70
	price := UnitPrice(margherita(), "medium")
	assert.Equal(t, 503.70, price)
}

func TestUnitPriceUnknownSize(t *testing.T) {
	// Unknown size uses multiplier 1 and medium's extra.
	price := UnitPrice(margherita(), "calzone")
	assert.Equal(t, 414.0, price)
}

func TestUnitPriceNoIngredients(t *testing.T) {
	p := margherita()
	p.Ingredients = nil
	price := UnitPrice(p, "small")
	assert.Equal(t, Round2(299*1.0+75), price)
}

func TestUnitPriceNonNegative(t *testing.T) {
	for _, size := range []string{"small", "medium", "large", "xl", "weird"} {
		assert.GreaterOrEqual(t, UnitPrice(margherita(), size), 0.0)
	}
}

func TestFallbackUnitPrice(t *testing.T) {
	// Deleted catalog entry: advisory price + size extra, no ingredient term.
	assert.Equal(t, 374.0, FallbackUnitPrice(299, "small"))
	assert.Equal(t, 384.0, FallbackUnitPrice(299, "unknown"))
}

func TestLineTotalClampsQuantity(t *testing.T) {
	assert.Equal(t, 503.70, LineTotal(503.70, 0))
	assert.Equal(t, 503.70, LineTotal(503.70, -3))
	assert.Equal(t, 1007.40, LineTotal(503.70, 2))
}

func TestOrderTotal(t *testing.T) {
	items := []models.OrderItem{
		{UnitPrice: 503.70, Quantity: 2, TotalPrice: 1007.40},
		{UnitPrice: 150.00, Quantity: 1, TotalPrice: 150.00},
	}
	assert.InDelta(t, 1157.40, OrderTotal(items), 1e-9)
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 388.7, Round2(299*1.3))
	assert.Equal(t, 0.13, Round2(0.125))
}

// Package pricing computes authoritative order prices. The functions here
// are pure: the service layer feeds them catalog data and they never trust
// client-supplied totals.
package pricing

import (
	"math"

	"pizza-platform/internal/models"
)

// IngredientModifier is the per-ingredient surcharge in currency units.
const IngredientModifier = 10

// Per-size flat extras. Unknown size names fall back to medium.
var sizeExtras = map[string]float64{
	"small":  75,
	"medium": 85,
	"large":  95,
	"xl":     100,
}

const defaultSizeExtra = 85

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SizeExtra returns the flat extra for a size name, defaulting to medium's.
func SizeExtra(size string) float64 {
	if extra, ok := sizeExtras[size]; ok {
		return extra
	}
	return defaultSizeExtra
}

// multiplierFor looks up the size multiplier on the pizza's variants,
// defaulting to 1 when the size is not configured.
func multiplierFor(pizza *models.Pizza, size string) float64 {
	for _, v := range pizza.Sizes {
		if v.Name == size {
			return v.Multiplier
		}
	}
	return 1
}

// UnitPrice computes the price of one pizza in the given size:
// base × multiplier + ingredient count × modifier + size extra.
func UnitPrice(pizza *models.Pizza, size string) float64 {
	price := pizza.BasePrice*multiplierFor(pizza, size) +
		float64(len(pizza.Ingredients))*IngredientModifier +
		SizeExtra(size)
	return Round2(price)
}

// FallbackUnitPrice is the degraded path for line items whose catalog entry
// no longer exists: the client's unit price plus the size extra. The
// ingredient term is dropped because the ingredient count is unknown.
func FallbackUnitPrice(advisoryUnitPrice float64, size string) float64 {
	return Round2(advisoryUnitPrice + SizeExtra(size))
}

// ClampQuantity forces quantities below one up to one.
func ClampQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

// LineTotal computes a line item total from unit price and quantity.
func LineTotal(unitPrice float64, quantity int) float64 {
	return Round2(unitPrice * float64(ClampQuantity(quantity)))
}

// OrderTotal sums the line totals of all items.
func OrderTotal(items []models.OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.TotalPrice
	}
	return Round2(total)
}

package domain

import "math"

// CentsPerUnit relates stored cents to the price field's units.
const CentsPerUnit = 100

const (
	// FreeShippingThreshold is the items subtotal that must be exceeded for free shipping:
	// 300 in the price field's units, held here in cents like every stored amount.
	FreeShippingThreshold int64 = 30000
	// FlatShippingFee (25) is charged when the subtotal does not exceed FreeShippingThreshold.
	FlatShippingFee int64 = 2500
)

// PricingBreakdown captures the monetary results of pricing an order.
type PricingBreakdown struct {
	Lines    []OrderLine
	Items    int64
	Shipping int64
	Tax      int64
	Total    int64
}

// LineTotal returns price multiplied by quantity for a single line.
func (l OrderLine) LineTotal() int64 {
	return l.Price * int64(l.Quantity)
}

// ItemsSubtotal sums the line totals.
func ItemsSubtotal(lines []OrderLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.LineTotal()
	}
	return total
}

// ShippingFor applies the flat shipping rule. The threshold itself still pays the fee.
func ShippingFor(items int64) int64 {
	if items > FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// CentsFromUnits rounds a price in major units to the nearest cent.
func CentsFromUnits(units float64) int64 {
	return int64(math.Round(units * CentsPerUnit))
}

// UnitsFromCents is the inverse of CentsFromUnits.
func UnitsFromCents(cents int64) float64 {
	return float64(cents) / CentsPerUnit
}

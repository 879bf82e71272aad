package domain

import (
	"fmt"
	"math"
)

// PriceDecimals is the number of implied decimal digits in a fixed-point price.
const PriceDecimals = 6

// PriceMultiplier converts between decimal prices and micro-units.
const PriceMultiplier = 1_000_000

// maxDecimalPrice is the largest decimal price that converts to micro-units
// without losing integer precision in a float64.
const maxDecimalPrice = float64(1<<53) / PriceMultiplier

// PriceToMicro converts a decimal price to fixed-point micro-units.
// The price must be strictly positive and representable.
func PriceToMicro(price float64) (uint64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("price is not a finite number")
	}
	if price <= 0 {
		return 0, fmt.Errorf("price must be positive, got %v", price)
	}
	if price > maxDecimalPrice {
		return 0, fmt.Errorf("price %v exceeds representable range", price)
	}
	micro := math.Round(price * PriceMultiplier)
	if micro < 1 {
		return 0, fmt.Errorf("price %v rounds to zero micro-units", price)
	}
	return uint64(micro), nil
}

// PriceFromMicro converts fixed-point micro-units back to a decimal price.
func PriceFromMicro(micro uint64) float64 {
	return float64(micro) / PriceMultiplier
}

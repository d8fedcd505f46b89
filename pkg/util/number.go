package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds v to two decimal places. Non-finite input is returned as is.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// PctChange returns (v - base) / base * 100, or 0 when base is zero.
func PctChange(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (v - base) / base * 100
}

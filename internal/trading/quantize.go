// Package trading implements the signal evaluation and order lifecycle core.
package trading

import (
	"fmt"
	"math"
	"strings"
)

// Quantize rounds value down to the nearest multiple of step that does
// not exceed it. Rounding is always downward: rounding up would breach
// the intended position size or get the order rejected by the exchange.
//
// Steps of 1 or more quantize to whole units. Fractional steps quantize
// at the step's decimal precision; steps whose last significant digit
// is 5 (0.5, 0.05, ...) are additionally floored to the nearest lower
// half-step, matching exchanges whose increment is a multiple of five
// rather than a power of ten.
func Quantize(value, step float64) float64 {
	if step >= 1 {
		return math.Floor(value)
	}

	places, endsInFive := stepPrecision(step)
	multiplier := math.Pow(10, float64(places))

	quantized := roundTo(math.Floor(value*multiplier)/multiplier, places)

	if endsInFive {
		halfStepMultiplier := multiplier / 10
		scaled := quantized * halfStepMultiplier
		quantized = roundTo(math.Floor(scaled*2)/2/halfStepMultiplier, places)
	}

	return quantized
}

// stepPrecision derives the number of fractional digits in step's
// shortest decimal representation (up to 7 digits, trailing zeros
// stripped) and whether its last significant digit is 5.
func stepPrecision(step float64) (places int, endsInFive bool) {
	s := strings.TrimRight(fmt.Sprintf("%.7f", step), "0")
	s = strings.TrimRight(s, ".")
	if i := strings.IndexByte(s, '.'); i >= 0 {
		places = len(s) - i - 1
	}
	endsInFive = len(s) > 0 && s[len(s)-1] == '5'
	return places, endsInFive
}

// roundTo rounds to a fixed number of decimal places, clearing the
// float noise left by the floor-divide.
func roundTo(value float64, places int) float64 {
	multiplier := math.Pow(10, float64(places))
	return math.Round(value*multiplier) / multiplier
}

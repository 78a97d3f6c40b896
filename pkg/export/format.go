package export

import (
	"math"
	"strconv"
)

// FormatCount renders an integer count.
func FormatCount(n int) string {
	return strconv.Itoa(n)
}

// FormatDecimal renders a value with one decimal place.
func FormatDecimal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	rounded := math.Round(v*10) / 10
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return strconv.FormatFloat(rounded, 'f', 1, 64)
}

// FormatPercent renders a 0..1 ratio as a percentage with one decimal place.
func FormatPercent(ratio float64) string {
	return FormatDecimal(ratio * 100)
}

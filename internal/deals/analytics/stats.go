package analytics

import (
	"math"
	"sort"
)

// Percentile returns the nearest-rank percentile of values: the element at
// index round((n-1)*p) of the ascending-sorted copy. No interpolation.
// ok is false for an empty sample.
func Percentile(values []float64, p float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := sortedCopy(values)
	idx := int(math.Round(float64(len(sorted)-1) * p))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx], true
}

// Median returns the middle value, averaging the two middle values for an
// even-sized sample.
func Median(values []float64) (float64, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := sortedCopy(values)
	if n%2 == 1 {
		return sorted[n/2], true
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2, true
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

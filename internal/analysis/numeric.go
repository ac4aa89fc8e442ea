package analysis

import (
	"math"
	"sort"
)

// dropNaN returns values with NaN entries removed.
func dropNaN(values []float64) []float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	return clean
}

// pairwiseComplete returns aligned copies of x and y with rows dropped
// where either value is NaN. Slices of unequal length are truncated to the
// shorter one.
func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// Quantile computes the q-th quantile (0 <= q <= 1) of values using linear
// interpolation between order statistics. Values must be NaN-free; returns
// NaN for an empty input.
//
// The quality validator and the outlier-exclusion filter both derive their
// IQR fences from this function so the two always agree exactly.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	h := q * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	frac := h - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// IQRFences computes the 1.5*IQR outlier fences over NaN-free values.
// Returns (lower, upper, iqr); all NaN for an empty input.
func IQRFences(values []float64) (lower, upper, iqr float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}

	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr = q3 - q1
	lower = q1 - 1.5*iqr
	upper = q3 + 1.5*iqr
	return lower, upper, iqr
}

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{"median of odd count", []float64{5, 1, 3}, 0.5, 3},
		{"median interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"first quartile interpolates", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"third quartile interpolates", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"q zero is minimum", []float64{7, 2, 9}, 0, 2},
		{"q one is maximum", []float64{7, 2, 9}, 1, 9},
		{"single value", []float64{42}, 0.75, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-12)
		})
	}
}

func TestQuantileEmpty(t *testing.T) {
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestIQRFences(t *testing.T) {
	lower, upper, iqr := IQRFences([]float64{1, 2, 3, 4})

	assert.InDelta(t, 1.5, iqr, 1e-12)
	assert.InDelta(t, -0.5, lower, 1e-12)
	assert.InDelta(t, 5.5, upper, 1e-12)
}

func TestIQRFencesConstant(t *testing.T) {
	lower, upper, iqr := IQRFences([]float64{3, 3, 3, 3})

	assert.Equal(t, 0.0, iqr)
	assert.Equal(t, 3.0, lower)
	assert.Equal(t, 3.0, upper)
}

func TestPairwiseComplete(t *testing.T) {
	x := []float64{1, math.NaN(), 3, 4}
	y := []float64{10, 20, math.NaN(), 40}

	xs, ys := pairwiseComplete(x, y)

	assert.Equal(t, []float64{1, 4}, xs)
	assert.Equal(t, []float64{10, 40}, ys)
}

func TestPairwiseCompleteUnequalLength(t *testing.T) {
	xs, ys := pairwiseComplete([]float64{1, 2, 3}, []float64{10, 20})

	assert.Equal(t, []float64{1, 2}, xs)
	assert.Equal(t, []float64{10, 20}, ys)
}

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airhealth-platform/internal/models"
)

func TestIncomeStressIndex(t *testing.T) {
	got := IncomeStressIndex(models.IntPtr(3), models.Float64Ptr(100), models.Float64Ptr(250))

	require.NotNil(t, got)
	assert.InDelta(t, 550.0, *got, 1e-9)
}

func TestIncomeStressIndexNilInputs(t *testing.T) {
	wage := models.Float64Ptr(100)
	cost := models.Float64Ptr(250)
	days := models.IntPtr(3)

	assert.Nil(t, IncomeStressIndex(nil, wage, cost))
	assert.Nil(t, IncomeStressIndex(days, nil, cost))
	assert.Nil(t, IncomeStressIndex(days, wage, nil))
}

func TestNormalizeMinMax(t *testing.T) {
	got := NormalizeMinMax([]float64{1, 2, 3})

	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.InDelta(t, 0.5, got[1], 1e-12)
	assert.InDelta(t, 1.0, got[2], 1e-12)
}

func TestNormalizeMinMaxAllEqual(t *testing.T) {
	got := NormalizeMinMax([]float64{4, 4, 4})

	for _, v := range got {
		assert.Equal(t, 0.5, v)
	}
}

func TestNormalizeMinMaxPreservesNaN(t *testing.T) {
	got := NormalizeMinMax([]float64{1, math.NaN(), 3})

	assert.Equal(t, 0.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 1.0, got[2])
}

func TestHighAQIPercentageIncrease(t *testing.T) {
	aqi := []float64{50, 60, 150, 160}
	outcome := []float64{10, 10, 20, 20}

	got := HighAQIPercentageIncrease(aqi, outcome)

	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestHighAQIPercentageIncreaseEmptyGroup(t *testing.T) {
	// No high-pollution days at all.
	assert.Equal(t, 0.0, HighAQIPercentageIncrease([]float64{50, 60}, []float64{10, 20}))
	// No normal days at all.
	assert.Equal(t, 0.0, HighAQIPercentageIncrease([]float64{150, 160}, []float64{10, 20}))
}

func TestHighAQIPercentageIncreaseZeroBaseline(t *testing.T) {
	got := HighAQIPercentageIncrease([]float64{50, 150}, []float64{0, 20})

	assert.Equal(t, 0.0, got)
}

func TestHighAQIPercentageIncreaseSkipsNaN(t *testing.T) {
	aqi := []float64{50, math.NaN(), 150}
	outcome := []float64{10, 99, 15}

	got := HighAQIPercentageIncrease(aqi, outcome)

	assert.InDelta(t, 50.0, got, 1e-9)
}

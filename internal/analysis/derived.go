package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// HighAQIThreshold separates high-pollution days from normal days.
const HighAQIThreshold = 100

// IncomeStressIndex derives the economic burden proxy for one record:
// hospital days priced at the average daily wage plus the estimated
// treatment cost. Any nil input yields nil.
func IncomeStressIndex(hospitalDays *int, avgDailyWage, treatmentCostEst *float64) *float64 {
	if hospitalDays == nil || avgDailyWage == nil || treatmentCostEst == nil {
		return nil
	}
	v := float64(*hospitalDays)**avgDailyWage + *treatmentCostEst
	return &v
}

// NormalizeMinMax rescales values to [0, 1]. NaN entries stay NaN. When all
// valid values are equal every valid entry maps to 0.5.
func NormalizeMinMax(values []float64) []float64 {
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(values))
	span := max - min
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case span == 0:
			out[i] = 0.5
		default:
			out[i] = (v - min) / span
		}
	}
	return out
}

// HighAQIPercentageIncrease computes the percentage increase of the mean
// outcome on high-AQI rows (aqi > HighAQIThreshold) over the mean outcome on
// the remaining rows. Rows where either value is NaN are ignored. Returns 0
// when either group is empty or the normal-day mean is 0.
func HighAQIPercentageIncrease(aqi, outcome []float64) float64 {
	var high, normal []float64
	n := len(aqi)
	if len(outcome) < n {
		n = len(outcome)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(aqi[i]) || math.IsNaN(outcome[i]) {
			continue
		}
		if aqi[i] > HighAQIThreshold {
			high = append(high, outcome[i])
		} else {
			normal = append(normal, outcome[i])
		}
	}

	if len(high) == 0 || len(normal) == 0 {
		return 0
	}

	normalMean := stat.Mean(normal, nil)
	if normalMean == 0 {
		return 0
	}
	highMean := stat.Mean(high, nil)
	return (highMean - normalMean) / normalMean * 100
}

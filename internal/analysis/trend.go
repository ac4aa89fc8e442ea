package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"airhealth-platform/internal/models"
)

// Slope thresholds for classifying the overall trend direction.
const trendSlopeThreshold = 0.1

// RollingPoint is one date-ordered observation with its trailing average.
type RollingPoint struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Average float64   `json:"average"`
}

// SeasonStats summarizes a numeric column within one season.
type SeasonStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// TrendResult classifies the overall linear trend of a column over time.
type TrendResult struct {
	Slope            float64 `json:"slope"`
	Direction        string  `json:"direction"`
	SampleSize       int     `json:"sample_size"`
	InsufficientData bool    `json:"insufficient_data"`
}

// TrendSummary bundles the rolling, seasonal, and overall trend views of
// one column.
type TrendSummary struct {
	Column   string                 `json:"column"`
	Window   int                    `json:"window"`
	Rolling  []RollingPoint         `json:"rolling"`
	Seasonal map[string]SeasonStats `json:"seasonal"`
	Trend    TrendResult            `json:"trend"`
}

// dateSorted returns row indices ordered by ascending date, ties kept in
// input order.
func dateSorted(ds models.Dataset) []int {
	idx := make([]int, len(ds))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ds[idx[a]].Date.Before(ds[idx[b]].Date)
	})
	return idx
}

// RollingAverages computes a trailing moving average of the column over the
// date-ordered rows. Null values contribute nothing to the window; a window
// position with at least one valid value still yields an average.
func RollingAverages(ds models.Dataset, column string, window int) ([]RollingPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("rolling window must be positive, got %d", window)
	}

	values, err := ds.NumericColumn(column)
	if err != nil {
		return nil, err
	}

	idx := dateSorted(ds)
	points := make([]RollingPoint, len(idx))
	for pos, i := range idx {
		sum := 0.0
		count := 0
		for back := 0; back <= pos && back < window; back++ {
			v := values[idx[pos-back]]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			count++
		}

		avg := math.NaN()
		if count > 0 {
			avg = sum / float64(count)
		}
		points[pos] = RollingPoint{
			Date:    ds[i].Date,
			Value:   values[i],
			Average: avg,
		}
	}
	return points, nil
}

// SeasonOfMonth maps a calendar month to its season.
func SeasonOfMonth(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// SeasonalStats groups the column by season and summarizes each group.
// Records with a season label use it; the rest derive the season from the
// record date. Null values are skipped.
func SeasonalStats(ds models.Dataset, column string) (map[string]SeasonStats, error) {
	values, err := ds.NumericColumn(column)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]float64)
	for i := range ds {
		if math.IsNaN(values[i]) {
			continue
		}
		season := SeasonOfMonth(ds[i].Date.Month())
		if ds[i].Season != nil {
			season = *ds[i].Season
		}
		groups[season] = append(groups[season], values[i])
	}

	out := make(map[string]SeasonStats, len(groups))
	for season, vs := range groups {
		min, max := vs[0], vs[0]
		for _, v := range vs {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		std := 0.0
		if len(vs) > 1 {
			std = stat.StdDev(vs, nil)
		}
		out[season] = SeasonStats{
			Mean:  stat.Mean(vs, nil),
			Std:   std,
			Min:   min,
			Max:   max,
			Count: len(vs),
		}
	}
	return out, nil
}

// OverallTrend fits a least-squares line to the column over its
// date-ordered valid values and classifies the slope as increasing,
// decreasing, or stable.
func OverallTrend(ds models.Dataset, column string) (TrendResult, error) {
	values, err := ds.NumericColumn(column)
	if err != nil {
		return TrendResult{}, err
	}

	var ys []float64
	for _, i := range dateSorted(ds) {
		if !math.IsNaN(values[i]) {
			ys = append(ys, values[i])
		}
	}

	if len(ys) < 2 {
		return TrendResult{
			Slope:            math.NaN(),
			Direction:        "stable",
			SampleSize:       len(ys),
			InsufficientData: true,
		}, nil
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)

	direction := "stable"
	switch {
	case slope > trendSlopeThreshold:
		direction = "increasing"
	case slope < -trendSlopeThreshold:
		direction = "decreasing"
	}

	return TrendResult{
		Slope:      slope,
		Direction:  direction,
		SampleSize: len(ys),
	}, nil
}

// AnalyzeTrend builds the full trend summary for one column.
func AnalyzeTrend(ds models.Dataset, column string, window int) (TrendSummary, error) {
	rolling, err := RollingAverages(ds, column, window)
	if err != nil {
		return TrendSummary{}, err
	}

	seasonal, err := SeasonalStats(ds, column)
	if err != nil {
		return TrendSummary{}, err
	}

	trend, err := OverallTrend(ds, column)
	if err != nil {
		return TrendSummary{}, err
	}

	return TrendSummary{
		Column:   column,
		Window:   window,
		Rolling:  rolling,
		Seasonal: seasonal,
		Trend:    trend,
	}, nil
}

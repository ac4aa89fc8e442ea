package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airhealth-platform/internal/models"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return parsed
}

func TestRollingAverages(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-01"), Location: "Lahore", PM25: models.Float64Ptr(1)},
		{Date: day(t, "2024-01-02"), Location: "Lahore"},
		{Date: day(t, "2024-01-03"), Location: "Lahore", PM25: models.Float64Ptr(3)},
	}

	points, err := RollingAverages(ds, "pm25", 2)
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.InDelta(t, 1.0, points[0].Average, 1e-12)
	// The null value contributes nothing; the window still holds day one.
	assert.True(t, math.IsNaN(points[1].Value))
	assert.InDelta(t, 1.0, points[1].Average, 1e-12)
	assert.InDelta(t, 3.0, points[2].Average, 1e-12)
}

func TestRollingAveragesOrdersByDate(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-03"), Location: "Lahore", PM25: models.Float64Ptr(30)},
		{Date: day(t, "2024-01-01"), Location: "Lahore", PM25: models.Float64Ptr(10)},
		{Date: day(t, "2024-01-02"), Location: "Lahore", PM25: models.Float64Ptr(20)},
	}

	points, err := RollingAverages(ds, "pm25", 3)
	require.NoError(t, err)

	assert.Equal(t, day(t, "2024-01-01"), points[0].Date)
	assert.Equal(t, day(t, "2024-01-03"), points[2].Date)
	assert.InDelta(t, 20.0, points[2].Average, 1e-12)
}

func TestRollingAveragesInvalidWindow(t *testing.T) {
	_, err := RollingAverages(models.Dataset{}, "pm25", 0)
	assert.Error(t, err)
}

func TestRollingAveragesUnknownColumn(t *testing.T) {
	_, err := RollingAverages(models.Dataset{}, "nope", 3)
	assert.Error(t, err)
}

func TestSeasonOfMonth(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Winter"},
		{time.February, "Winter"},
		{time.December, "Winter"},
		{time.April, "Spring"},
		{time.July, "Summer"},
		{time.October, "Fall"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeasonOfMonth(tt.month), "month=%s", tt.month)
	}
}

func TestSeasonalStats(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-15"), Location: "Lahore", PM25: models.Float64Ptr(10)},
		{Date: day(t, "2024-07-15"), Location: "Lahore", PM25: models.Float64Ptr(20)},
		{Date: day(t, "2024-07-20"), Location: "Lahore", PM25: models.Float64Ptr(30)},
	}

	stats, err := SeasonalStats(ds, "pm25")
	require.NoError(t, err)

	winter := stats["Winter"]
	assert.Equal(t, 1, winter.Count)
	assert.InDelta(t, 10.0, winter.Mean, 1e-12)
	assert.Equal(t, 0.0, winter.Std)

	summer := stats["Summer"]
	assert.Equal(t, 2, summer.Count)
	assert.InDelta(t, 25.0, summer.Mean, 1e-12)
	assert.InDelta(t, 20.0, summer.Min, 1e-12)
	assert.InDelta(t, 30.0, summer.Max, 1e-12)
}

func TestSeasonalStatsUsesRecordLabel(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-15"), Location: "Lahore", Season: models.StringPtr("Summer"), PM25: models.Float64Ptr(10)},
	}

	stats, err := SeasonalStats(ds, "pm25")
	require.NoError(t, err)

	assert.Contains(t, stats, "Summer")
	assert.NotContains(t, stats, "Winter")
}

func TestOverallTrend(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"increasing", []float64{1, 2, 3, 4, 5}, "increasing"},
		{"decreasing", []float64{10, 8, 6, 4, 2}, "decreasing"},
		{"stable", []float64{5, 5.01, 4.99, 5, 5.02}, "stable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := make(models.Dataset, len(tt.values))
			for i, v := range tt.values {
				ds[i] = models.Record{
					Date:     day(t, "2024-01-01").AddDate(0, 0, i),
					Location: "Lahore",
					PM25:     models.Float64Ptr(v),
				}
			}

			result, err := OverallTrend(ds, "pm25")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Direction)
			assert.False(t, result.InsufficientData)
		})
	}
}

func TestOverallTrendInsufficientData(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-01"), Location: "Lahore", PM25: models.Float64Ptr(5)},
	}

	result, err := OverallTrend(ds, "pm25")
	require.NoError(t, err)

	assert.True(t, result.InsufficientData)
	assert.True(t, math.IsNaN(result.Slope))
	assert.Equal(t, "stable", result.Direction)
}

func TestAnalyzeTrend(t *testing.T) {
	ds := models.Dataset{
		{Date: day(t, "2024-01-01"), Location: "Lahore", PM25: models.Float64Ptr(10)},
		{Date: day(t, "2024-01-02"), Location: "Lahore", PM25: models.Float64Ptr(20)},
		{Date: day(t, "2024-07-01"), Location: "Lahore", PM25: models.Float64Ptr(30)},
	}

	summary, err := AnalyzeTrend(ds, "pm25", 7)
	require.NoError(t, err)

	assert.Equal(t, "pm25", summary.Column)
	assert.Equal(t, 7, summary.Window)
	assert.Len(t, summary.Rolling, 3)
	assert.Contains(t, summary.Seasonal, "Winter")
	assert.Contains(t, summary.Seasonal, "Summer")
	assert.Equal(t, "increasing", summary.Trend.Direction)
}

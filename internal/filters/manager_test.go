package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airhealth-platform/internal/models"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return parsed
}

// fullRecord builds a complete record, varying numeric columns with i.
func fullRecord(i int, location string) models.Record {
	return models.Record{
		Date:              time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		Location:          location,
		PM25:              models.Float64Ptr(30),
		PM10:              models.Float64Ptr(45),
		AQI:               models.IntPtr(50 + i),
		Temperature:       models.Float64Ptr(22),
		WindSpeed:         models.Float64Ptr(6),
		Sunlight:          models.Float64Ptr(8),
		Season:            models.StringPtr("Winter"),
		AgeGroup:          models.StringPtr("19-35"),
		Gender:            models.StringPtr("Male"),
		RespiratoryCases:  models.IntPtr(10),
		HospitalDays:      models.IntPtr(2),
		AvgDailyWage:      models.Float64Ptr(100),
		TreatmentCostEst:  models.Float64Ptr(50),
		IncomeStressIndex: models.Float64Ptr(250 + float64(i)*10),
	}
}

func sampleDataset() models.Dataset {
	ds := make(models.Dataset, 0, 10)
	for i := 0; i < 5; i++ {
		ds = append(ds, fullRecord(i, "Lahore"))
	}
	for i := 5; i < 10; i++ {
		ds = append(ds, fullRecord(i, "Karachi"))
	}
	return ds
}

func TestApplyLocation(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyLocation(LocationParams{Locations: []string{"Lahore"}}))

	assert.Equal(t, 5, m.Filtered().Len())
	require.Len(t, m.Stages(), 1)
	assert.Equal(t, StageLocation, m.Stages()[0].Name)
	assert.Equal(t, 10, m.Stages()[0].Before)
	assert.Equal(t, 5, m.Stages()[0].After)
}

func TestApplyLocationEmptyListIsNoop(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyLocation(LocationParams{}))

	assert.Equal(t, 10, m.Filtered().Len())
	assert.Empty(t, m.Stages())
}

func TestApplyDemographicsDropsNulls(t *testing.T) {
	ds := sampleDataset()
	ds[0].Gender = nil

	m := NewManager(ds)
	require.NoError(t, m.ApplyDemographics(DemographicParams{Genders: []string{"Male"}}))

	assert.Equal(t, 9, m.Filtered().Len())
}

func TestApplyEnvironmentRangeInclusive(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyEnvironment(EnvironmentParams{
		AQIMin: models.Float64Ptr(52),
		AQIMax: models.Float64Ptr(55),
	}))

	// AQI values run 50..59; both boundaries included.
	assert.Equal(t, 4, m.Filtered().Len())
}

func TestApplyEnvironmentDropsNullWithActiveBound(t *testing.T) {
	ds := sampleDataset()
	ds[0].AQI = nil

	m := NewManager(ds)
	require.NoError(t, m.ApplyEnvironment(EnvironmentParams{AQIMin: models.Float64Ptr(0)}))

	assert.Equal(t, 9, m.Filtered().Len())
}

func TestApplyEnvironmentInvalidRange(t *testing.T) {
	m := NewManager(sampleDataset())

	err := m.ApplyEnvironment(EnvironmentParams{
		AQIMin: models.Float64Ptr(100),
		AQIMax: models.Float64Ptr(50),
	})

	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, StageEnvironment, rangeErr.Stage)
	assert.Equal(t, "aqi", rangeErr.Field)
	assert.False(t, rangeErr.IsTransient())
	// The view and provenance are untouched.
	assert.Equal(t, 10, m.Filtered().Len())
	assert.Empty(t, m.Stages())
}

func TestApplyTimeRangeInclusive(t *testing.T) {
	m := NewManager(sampleDataset())

	start := mustDate(t, "2024-01-03")
	end := mustDate(t, "2024-01-05")
	require.NoError(t, m.ApplyTimeRange(TimeParams{StartDate: &start, EndDate: &end}))

	assert.Equal(t, 3, m.Filtered().Len())
}

func TestApplyTimeRangeInverted(t *testing.T) {
	m := NewManager(sampleDataset())

	start := mustDate(t, "2024-02-01")
	end := mustDate(t, "2024-01-01")
	err := m.ApplyTimeRange(TimeParams{StartDate: &start, EndDate: &end})

	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 10, m.Filtered().Len())
}

func TestApplyThresholds(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyThresholds(ThresholdParams{
		IncomeStressMin: models.Float64Ptr(300),
	}))

	// Stress index runs 250..340 in steps of 10.
	assert.Equal(t, 5, m.Filtered().Len())
}

func TestApplyQualityMinSampleSize(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyQuality(QualityParams{MinSampleSize: 50}))

	assert.Equal(t, 0, m.Filtered().Len())
	require.Len(t, m.Stages(), 1)
	assert.Equal(t, StageQuality, m.Stages()[0].Name)
	assert.Equal(t, 0, m.Stages()[0].After)
}

func TestApplyQualityMinSampleSizeSatisfied(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyQuality(QualityParams{MinSampleSize: 5}))

	assert.Equal(t, 10, m.Filtered().Len())
	require.Len(t, m.Stages(), 1)
}

func TestApplyQualityDisabledSampleSize(t *testing.T) {
	m := NewManager(sampleDataset())

	require.NoError(t, m.ApplyQuality(QualityParams{MinSampleSize: 0}))

	assert.Equal(t, 10, m.Filtered().Len())
	assert.Empty(t, m.Stages())
}

func TestApplyQualityCompleteness(t *testing.T) {
	ds := sampleDataset()
	// Strip most values from one row.
	ds[0] = models.Record{Date: ds[0].Date, Location: ds[0].Location}

	m := NewManager(ds)
	require.NoError(t, m.ApplyQuality(QualityParams{MinCompleteness: models.Float64Ptr(0.9)}))

	assert.Equal(t, 9, m.Filtered().Len())
}

func TestApplyQualityEmptyViewIsNoop(t *testing.T) {
	m := NewManager(models.Dataset{})

	require.NoError(t, m.ApplyQuality(QualityParams{MinSampleSize: 5, ExcludeOutliers: true}))

	assert.Empty(t, m.Stages())
}

func TestApplyQualityExcludeOutliers(t *testing.T) {
	ds := make(models.Dataset, 0, 12)
	for i := 0; i < 11; i++ {
		ds = append(ds, fullRecord(i, "Lahore"))
	}
	extreme := fullRecord(11, "Lahore")
	extreme.AQI = models.IntPtr(490)
	ds = append(ds, extreme)

	m := NewManager(ds)
	require.NoError(t, m.ApplyQuality(QualityParams{ExcludeOutliers: true}))

	assert.Equal(t, 11, m.Filtered().Len())
	for i := range m.Filtered() {
		require.NotNil(t, m.Filtered()[i].AQI)
		assert.Less(t, *m.Filtered()[i].AQI, 490)
	}

	require.Len(t, m.Stages(), 1)
	assert.Equal(t, true, m.Stages()[0].Params["exclude_outliers"])
	assert.NotContains(t, m.Stages()[0].Params, "outlier_exclusion_skipped")
}

func TestApplyQualityOutliersSkipSmallView(t *testing.T) {
	ds := make(models.Dataset, 0, 6)
	for i := 0; i < 5; i++ {
		ds = append(ds, fullRecord(i, "Lahore"))
	}
	extreme := fullRecord(5, "Lahore")
	extreme.AQI = models.IntPtr(490)
	ds = append(ds, extreme)

	m := NewManager(ds)
	require.NoError(t, m.ApplyQuality(QualityParams{ExcludeOutliers: true}))

	// Too few rows for outlier detection; nothing removed, but the request
	// and the skip both show up in the provenance.
	assert.Equal(t, 6, m.Filtered().Len())
	require.Len(t, m.Stages(), 1)
	assert.Equal(t, true, m.Stages()[0].Params["exclude_outliers"])
	assert.Equal(t, true, m.Stages()[0].Params["outlier_exclusion_skipped"])
}

func TestApplyQualityOutliersKeepNulls(t *testing.T) {
	ds := make(models.Dataset, 0, 13)
	for i := 0; i < 11; i++ {
		ds = append(ds, fullRecord(i, "Lahore"))
	}
	withNull := fullRecord(11, "Lahore")
	withNull.AQI = nil
	extreme := fullRecord(12, "Lahore")
	extreme.AQI = models.IntPtr(490)
	ds = append(ds, withNull, extreme)

	m := NewManager(ds)
	require.NoError(t, m.ApplyQuality(QualityParams{ExcludeOutliers: true}))

	nullKept := false
	for i := range m.Filtered() {
		if m.Filtered()[i].AQI == nil {
			nullKept = true
		}
	}
	assert.True(t, nullKept)
	assert.Equal(t, 12, m.Filtered().Len())
}

func TestReset(t *testing.T) {
	m := NewManager(sampleDataset())
	require.NoError(t, m.ApplyLocation(LocationParams{Locations: []string{"Lahore"}}))
	require.Equal(t, 5, m.Filtered().Len())

	m.Reset()

	assert.Equal(t, 10, m.Filtered().Len())
	assert.Empty(t, m.Stages())
}

func TestAvailableValuesFromOriginal(t *testing.T) {
	m := NewManager(sampleDataset())
	require.NoError(t, m.ApplyLocation(LocationParams{Locations: []string{"Lahore"}}))

	values := m.AvailableValues()

	// Enumerations always come from the original dataset.
	assert.Equal(t, []string{"Karachi", "Lahore"}, values.Locations)
	assert.Equal(t, []string{"19-35"}, values.AgeGroups)
	assert.Equal(t, []string{"Male"}, values.Genders)
	assert.Equal(t, []string{"Winter"}, values.Seasons)

	aqi := values.NumericRanges["aqi"]
	assert.Equal(t, 50.0, aqi.Min)
	assert.Equal(t, 59.0, aqi.Max)
	assert.InDelta(t, 54.5, aqi.Mean, 1e-12)

	require.NotNil(t, values.DateRange)
	assert.Equal(t, mustDate(t, "2024-01-01"), values.DateRange.Min)
	assert.Equal(t, mustDate(t, "2024-01-10"), values.DateRange.Max)
}

func TestSummary(t *testing.T) {
	m := NewManager(sampleDataset())
	require.NoError(t, m.ApplyLocation(LocationParams{Locations: []string{"Karachi"}}))

	summary := m.Summary()

	assert.Equal(t, 10, summary.OriginalRecords)
	assert.Equal(t, 5, summary.FilteredRecords)
	assert.Equal(t, 5, summary.RecordsRemoved)
	assert.InDelta(t, 0.5, summary.RetentionRate, 1e-12)
	assert.Equal(t, 1, summary.ActiveFilters)
	require.Len(t, summary.FilterDetails, 1)
}

func TestSummaryEmptyOriginal(t *testing.T) {
	m := NewManager(models.Dataset{})

	summary := m.Summary()

	assert.Equal(t, 0.0, summary.RetentionRate)
}

func TestApplyChain(t *testing.T) {
	m := NewManager(sampleDataset())

	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-08")
	err := m.ApplyChain(Request{
		Location: &LocationParams{Locations: []string{"Lahore", "Karachi"}},
		Time:     &TimeParams{StartDate: &start, EndDate: &end},
		Environment: &EnvironmentParams{
			AQIMax: models.Float64Ptr(56),
		},
	})

	require.NoError(t, err)
	// Chain order is fixed: location, environment, then time.
	assert.Equal(t, 7, m.Filtered().Len())
	require.Len(t, m.Stages(), 3)
	assert.Equal(t, StageLocation, m.Stages()[0].Name)
	assert.Equal(t, StageEnvironment, m.Stages()[1].Name)
	assert.Equal(t, StageTime, m.Stages()[2].Name)
}

func TestApplyChainStopsOnInvalidRange(t *testing.T) {
	m := NewManager(sampleDataset())

	err := m.ApplyChain(Request{
		Location: &LocationParams{Locations: []string{"Lahore"}},
		Environment: &EnvironmentParams{
			AQIMin: models.Float64Ptr(90),
			AQIMax: models.Float64Ptr(10),
		},
	})

	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	// The location stage ran before the invalid environment stage.
	assert.Equal(t, 5, m.Filtered().Len())
	require.Len(t, m.Stages(), 1)
}

func TestValidateCombination(t *testing.T) {
	m := NewManager(sampleDataset())

	check := m.ValidateCombination(QualityParams{MinSampleSize: 100})

	assert.True(t, check.IsValid)
	assert.Equal(t, 0.0, check.EstimatedRetention)
	require.NotEmpty(t, check.Warnings)
}

func TestValidateCombinationEmptyView(t *testing.T) {
	m := NewManager(models.Dataset{})

	check := m.ValidateCombination(QualityParams{})

	assert.False(t, check.IsValid)
	assert.NotEmpty(t, check.Warnings)
}

package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(day int, location string) Record {
	return Record{
		Date:              time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Location:          location,
		PM25:              Float64Ptr(35.5),
		AQI:               IntPtr(90),
		Season:            StringPtr("Winter"),
		RespiratoryCases:  IntPtr(12),
		HospitalDays:      IntPtr(3),
		AvgDailyWage:      Float64Ptr(150.0),
		TreatmentCostEst:  Float64Ptr(500.0),
		IncomeStressIndex: Float64Ptr(950.0),
	}
}

func TestColumnByName(t *testing.T) {
	tests := []struct {
		name   string
		column string
		found  bool
		kind   ColumnKind
	}{
		{name: "numeric column", column: "aqi", found: true, kind: KindNumeric},
		{name: "category column", column: "season", found: true, kind: KindCategory},
		{name: "date column", column: "date", found: true, kind: KindDate},
		{name: "unknown column", column: "humidity", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, ok := ColumnByName(tt.column)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.column, col.Name)
				assert.Equal(t, tt.kind, col.Kind)
			}
		})
	}
}

func TestColumnNames(t *testing.T) {
	names := ColumnNames()

	assert.Len(t, names, 16)
	assert.Equal(t, "date", names[0])
	assert.Equal(t, "location", names[1])
	assert.Equal(t, "income_stress_index", names[15])
}

func TestNumericColumnNames(t *testing.T) {
	names := NumericColumnNames()

	assert.Contains(t, names, "aqi")
	assert.Contains(t, names, "income_stress_index")
	assert.NotContains(t, names, "date")
	assert.NotContains(t, names, "season")
	assert.Len(t, names, 11)
}

func TestNumericColumn(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore"), testRecord(2, "Karachi")}
	ds[1].AQI = nil

	values, err := ds.NumericColumn("aqi")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, 90.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
}

func TestNumericColumnUnknown(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore")}

	_, err := ds.NumericColumn("season")
	assert.Error(t, err)

	_, err = ds.NumericColumn("nope")
	assert.Error(t, err)
}

func TestNonNullCount(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore"), testRecord(2, "Lahore"), testRecord(3, "Lahore")}
	ds[0].PM25 = nil
	ds[2].PM25 = nil

	col, ok := ColumnByName("pm25")
	require.True(t, ok)
	assert.Equal(t, 1, ds.NonNullCount(col))

	dateCol, ok := ColumnByName("date")
	require.True(t, ok)
	assert.Equal(t, 3, ds.NonNullCount(dateCol))
}

func TestRowCompleteness(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore")}
	ds[0].PM25 = nil
	ds[0].AQI = nil

	var cols []Column
	for _, name := range []string{"aqi", "pm25", "respiratory_cases", "income_stress_index"} {
		col, ok := ColumnByName(name)
		require.True(t, ok)
		cols = append(cols, col)
	}

	assert.InDelta(t, 0.5, ds.RowCompleteness(0, cols), 1e-12)
	assert.Equal(t, 0.0, ds.RowCompleteness(0, nil))
}

func TestClone(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore"), testRecord(2, "Karachi")}

	clone := ds.Clone()
	require.Equal(t, ds, clone)

	clone[0].Location = "Islamabad"
	assert.Equal(t, "Lahore", ds[0].Location)
}

func TestDedupKey(t *testing.T) {
	ds := Dataset{testRecord(1, "Lahore"), testRecord(1, "Lahore"), testRecord(2, "Lahore")}

	assert.Equal(t, ds.DedupKey(0), ds.DedupKey(1))
	assert.NotEqual(t, ds.DedupKey(0), ds.DedupKey(2))

	// A null and a zero must produce different keys.
	withNull := Dataset{testRecord(1, "Lahore"), testRecord(1, "Lahore")}
	withNull[0].AQI = nil
	withNull[1].AQI = IntPtr(0)
	assert.NotEqual(t, withNull.DedupKey(0), withNull.DedupKey(1))
}

func TestDatasetLenAndEmpty(t *testing.T) {
	assert.True(t, Dataset{}.IsEmpty())
	assert.Equal(t, 0, Dataset{}.Len())

	ds := Dataset{testRecord(1, "Lahore")}
	assert.False(t, ds.IsEmpty())
	assert.Equal(t, 1, ds.Len())
}

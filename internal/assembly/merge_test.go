package assembly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airhealth-platform/internal/models"
)

func d(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return parsed
}

func envRow(t *testing.T, date, location string, aqi int) EnvironmentalRow {
	return EnvironmentalRow{
		Date:     d(t, date),
		Location: location,
		AQI:      models.IntPtr(aqi),
		PM25:     models.Float64Ptr(35),
	}
}

func hospRow(t *testing.T, date, location string, cases, days int) HospitalizationRow {
	return HospitalizationRow{
		Date:             d(t, date),
		Location:         location,
		AgeGroup:         models.StringPtr("19-35"),
		Gender:           models.StringPtr("Female"),
		RespiratoryCases: models.IntPtr(cases),
		HospitalDays:     models.IntPtr(days),
	}
}

func incomeRow(t *testing.T, date, location string, wage, cost float64) IncomeRow {
	return IncomeRow{
		Date:             d(t, date),
		Location:         location,
		AvgDailyWage:     models.Float64Ptr(wage),
		TreatmentCostEst: models.Float64Ptr(cost),
	}
}

func TestMergeInnerJoin(t *testing.T) {
	env := []EnvironmentalRow{
		envRow(t, "2024-01-01", "Lahore", 120),
		envRow(t, "2024-01-02", "Lahore", 90),
		envRow(t, "2024-01-01", "Karachi", 80),
	}
	hosp := []HospitalizationRow{
		hospRow(t, "2024-01-01", "Lahore", 12, 3),
		hospRow(t, "2024-01-02", "Lahore", 8, 1),
	}
	income := []IncomeRow{
		incomeRow(t, "2024-01-01", "Lahore", 100, 200),
		incomeRow(t, "2024-01-02", "Lahore", 100, 150),
	}

	ds, err := Merge(env, hosp, income)
	require.NoError(t, err)

	// Karachi has no hospitalization or income match.
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Lahore", ds[0].Location)
	assert.Equal(t, 120, *ds[0].AQI)
	assert.Equal(t, 12, *ds[0].RespiratoryCases)
	assert.Equal(t, 100.0, *ds[0].AvgDailyWage)
}

func TestMergeDerivesIncomeStressIndex(t *testing.T) {
	env := []EnvironmentalRow{envRow(t, "2024-01-01", "Lahore", 120)}
	hosp := []HospitalizationRow{hospRow(t, "2024-01-01", "Lahore", 12, 3)}
	income := []IncomeRow{incomeRow(t, "2024-01-01", "Lahore", 100, 200)}

	ds, err := Merge(env, hosp, income)
	require.NoError(t, err)

	require.NotNil(t, ds[0].IncomeStressIndex)
	assert.InDelta(t, 3*100+200, *ds[0].IncomeStressIndex, 1e-9)
}

func TestMergeNullInputsGiveNullStressIndex(t *testing.T) {
	env := []EnvironmentalRow{envRow(t, "2024-01-01", "Lahore", 120)}
	hosp := []HospitalizationRow{hospRow(t, "2024-01-01", "Lahore", 12, 3)}
	income := []IncomeRow{{
		Date:     d(t, "2024-01-01"),
		Location: "Lahore",
	}}

	ds, err := Merge(env, hosp, income)
	require.NoError(t, err)

	assert.Nil(t, ds[0].IncomeStressIndex)
}

func TestMergeManyToMany(t *testing.T) {
	env := []EnvironmentalRow{envRow(t, "2024-01-01", "Lahore", 120)}
	hosp := []HospitalizationRow{
		hospRow(t, "2024-01-01", "Lahore", 12, 3),
		hospRow(t, "2024-01-01", "Lahore", 5, 1),
	}
	income := []IncomeRow{
		incomeRow(t, "2024-01-01", "Lahore", 100, 200),
		incomeRow(t, "2024-01-01", "Lahore", 150, 100),
	}

	ds, err := Merge(env, hosp, income)
	require.NoError(t, err)

	// Duplicate keys multiply: 1 env x 2 hosp x 2 income.
	assert.Equal(t, 4, ds.Len())
}

func TestMergeEmptyResult(t *testing.T) {
	env := []EnvironmentalRow{envRow(t, "2024-01-01", "Lahore", 120)}
	hosp := []HospitalizationRow{hospRow(t, "2024-01-01", "Karachi", 12, 3)}
	income := []IncomeRow{incomeRow(t, "2024-01-01", "Lahore", 100, 200)}

	_, err := Merge(env, hosp, income)

	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Error(), "no matching records")
	assert.False(t, mismatch.IsTransient())
}

func TestValidateEnvironmentalRejectsNegativePM(t *testing.T) {
	rows := []EnvironmentalRow{{
		Date:     d(t, "2024-01-01"),
		Location: "Lahore",
		PM25:     models.Float64Ptr(-1),
	}}

	err := validateEnvironmental(rows)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestValidateEnvironmentalRejectsAQIOutOfRange(t *testing.T) {
	rows := []EnvironmentalRow{{
		Date:     d(t, "2024-01-01"),
		Location: "Lahore",
		AQI:      models.IntPtr(501),
	}}

	assert.Error(t, validateEnvironmental(rows))
	rows[0].AQI = models.IntPtr(500)
	assert.NoError(t, validateEnvironmental(rows))
}

func TestValidateHospitalizationRejectsNegativeCounts(t *testing.T) {
	rows := []HospitalizationRow{{
		Date:             d(t, "2024-01-01"),
		Location:         "Lahore",
		RespiratoryCases: models.IntPtr(-3),
	}}

	assert.Error(t, validateHospitalization(rows))
}

func TestValidateIncomeRejectsNegativeWage(t *testing.T) {
	rows := []IncomeRow{{
		Date:         d(t, "2024-01-01"),
		Location:     "Lahore",
		AvgDailyWage: models.Float64Ptr(-10),
	}}

	assert.Error(t, validateIncome(rows))
}

package assembly

import (
	"context"
	"time"
)

// Source names used in errors, logs, and metrics.
const (
	SourceEnvironmental   = "environmental"
	SourceHospitalization = "hospitalization"
	SourceIncome          = "income"
)

// EnvironmentalRow is one reading from the air quality source.
type EnvironmentalRow struct {
	Date        time.Time `db:"date"`
	Location    string    `db:"location"`
	PM25        *float64  `db:"pm25"`
	PM10        *float64  `db:"pm10"`
	AQI         *int      `db:"aqi"`
	Temperature *float64  `db:"temperature"`
	WindSpeed   *float64  `db:"wind_speed"`
	Sunlight    *float64  `db:"sunlight"`
	Season      *string   `db:"season"`
}

// HospitalizationRow is one record from the hospital cases source.
type HospitalizationRow struct {
	Date             time.Time `db:"date"`
	Location         string    `db:"location"`
	AgeGroup         *string   `db:"age_group"`
	Gender           *string   `db:"gender"`
	RespiratoryCases *int      `db:"respiratory_cases"`
	HospitalDays     *int      `db:"hospital_days"`
}

// IncomeRow is one record from the income proxy source.
type IncomeRow struct {
	Date             time.Time `db:"date"`
	Location         string    `db:"location"`
	AvgDailyWage     *float64  `db:"avg_daily_wage"`
	TreatmentCostEst *float64  `db:"treatment_cost_est"`
}

// Source provides the three raw datasets the analysis dataset is merged
// from.
type Source interface {
	Environmental(ctx context.Context) ([]EnvironmentalRow, error)
	Hospitalization(ctx context.Context) ([]HospitalizationRow, error)
	Income(ctx context.Context) ([]IncomeRow, error)
}

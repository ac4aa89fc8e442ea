package models

import (
	"time"
)

// Record represents a single row of the merged analysis dataset, joined
// from the environmental, hospitalization, and income proxy sources on
// (date, location). NULL values are represented as nil pointers.
type Record struct {
	Date              time.Time `json:"date" db:"date"`
	Location          string    `json:"location" db:"location"`
	PM25              *float64  `json:"pm25,omitempty" db:"pm25"`
	PM10              *float64  `json:"pm10,omitempty" db:"pm10"`
	AQI               *int      `json:"aqi,omitempty" db:"aqi"`
	Temperature       *float64  `json:"temperature,omitempty" db:"temperature"`
	WindSpeed         *float64  `json:"wind_speed,omitempty" db:"wind_speed"`
	Sunlight          *float64  `json:"sunlight,omitempty" db:"sunlight"`
	Season            *string   `json:"season,omitempty" db:"season"`
	AgeGroup          *string   `json:"age_group,omitempty" db:"age_group"`
	Gender            *string   `json:"gender,omitempty" db:"gender"`
	RespiratoryCases  *int      `json:"respiratory_cases,omitempty" db:"respiratory_cases"`
	HospitalDays      *int      `json:"hospital_days,omitempty" db:"hospital_days"`
	AvgDailyWage      *float64  `json:"avg_daily_wage,omitempty" db:"avg_daily_wage"`
	TreatmentCostEst  *float64  `json:"treatment_cost_est,omitempty" db:"treatment_cost_est"`
	IncomeStressIndex *float64  `json:"income_stress_index,omitempty" db:"income_stress_index"`
}

// Enum domains for categorical columns
var (
	Seasons   = []string{"Spring", "Summer", "Fall", "Winter"}
	AgeGroups = []string{"0-18", "19-35", "36-50", "51-65", "65+"}
	Genders   = []string{"Male", "Female", "Other"}
)

// ValidSeason reports whether s is a recognized season
func ValidSeason(s string) bool {
	return contains(Seasons, s)
}

// ValidAgeGroup reports whether s is a recognized age group
func ValidAgeGroup(s string) bool {
	return contains(AgeGroups, s)
}

// ValidGender reports whether s is a recognized gender value
func ValidGender(s string) bool {
	return contains(Genders, s)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v
func StringPtr(v string) *string { return &v }

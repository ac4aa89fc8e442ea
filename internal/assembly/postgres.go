package assembly

import (
	"context"

	"airhealth-platform/pkg/database"
)

// PostgresSource reads the three raw datasets from their staging tables.
type PostgresSource struct {
	db *database.PostgresDB
}

// NewPostgresSource creates a Postgres-backed source.
func NewPostgresSource(db *database.PostgresDB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Environmental reads the air quality staging table.
func (s *PostgresSource) Environmental(ctx context.Context) ([]EnvironmentalRow, error) {
	query := `
		SELECT date, location, pm25, pm10, aqi, temperature, wind_speed, sunlight, season
		FROM aqi_env
		ORDER BY date, location`

	var rows []EnvironmentalRow
	if err := s.db.SelectContext(ctx, "select_environmental", &rows, query); err != nil {
		return nil, &SourceUnavailableError{Source: SourceEnvironmental, Err: err}
	}
	return rows, nil
}

// Hospitalization reads the hospital cases staging table.
func (s *PostgresSource) Hospitalization(ctx context.Context) ([]HospitalizationRow, error) {
	query := `
		SELECT date, location, age_group, gender, respiratory_cases, hospital_days
		FROM hospital_cases
		ORDER BY date, location`

	var rows []HospitalizationRow
	if err := s.db.SelectContext(ctx, "select_hospitalization", &rows, query); err != nil {
		return nil, &SourceUnavailableError{Source: SourceHospitalization, Err: err}
	}
	return rows, nil
}

// Income reads the income proxy staging table.
func (s *PostgresSource) Income(ctx context.Context) ([]IncomeRow, error) {
	query := `
		SELECT date, location, avg_daily_wage, treatment_cost_est
		FROM income_proxy
		ORDER BY date, location`

	var rows []IncomeRow
	if err := s.db.SelectContext(ctx, "select_income", &rows, query); err != nil {
		return nil, &SourceUnavailableError{Source: SourceIncome, Err: err}
	}
	return rows, nil
}

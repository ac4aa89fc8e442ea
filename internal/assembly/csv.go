package assembly

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cast"
)

// CSV file names expected in the data directory.
const (
	environmentalFile   = "aqi_env.csv"
	hospitalizationFile = "hospital_cases.csv"
	incomeFile          = "income_proxy.csv"
)

var (
	environmentalColumns = []string{
		"date", "location", "pm25", "pm10", "aqi",
		"temperature", "wind_speed", "sunlight", "season",
	}
	hospitalizationColumns = []string{
		"date", "location", "age_group", "gender",
		"respiratory_cases", "hospital_days",
	}
	incomeColumns = []string{
		"date", "location", "avg_daily_wage", "treatment_cost_est",
	}
)

// dateLayouts accepted for the date column, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02", "01/02/2006"}

// CSVSource reads the three raw datasets from CSV files in a directory.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a CSV source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Environmental reads and parses the air quality CSV.
func (s *CSVSource) Environmental(_ context.Context) ([]EnvironmentalRow, error) {
	rows, err := s.readCSV(SourceEnvironmental, environmentalFile, environmentalColumns)
	if err != nil {
		return nil, err
	}

	out := make([]EnvironmentalRow, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row["date"])
		if err != nil {
			return nil, rowError(SourceEnvironmental, i, err)
		}
		out = append(out, EnvironmentalRow{
			Date:        date,
			Location:    row["location"],
			PM25:        toFloat(row["pm25"]),
			PM10:        toFloat(row["pm10"]),
			AQI:         toInt(row["aqi"]),
			Temperature: toFloat(row["temperature"]),
			WindSpeed:   toFloat(row["wind_speed"]),
			Sunlight:    toFloat(row["sunlight"]),
			Season:      toString(row["season"]),
		})
	}
	return out, nil
}

// Hospitalization reads and parses the hospital cases CSV.
func (s *CSVSource) Hospitalization(_ context.Context) ([]HospitalizationRow, error) {
	rows, err := s.readCSV(SourceHospitalization, hospitalizationFile, hospitalizationColumns)
	if err != nil {
		return nil, err
	}

	out := make([]HospitalizationRow, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row["date"])
		if err != nil {
			return nil, rowError(SourceHospitalization, i, err)
		}
		out = append(out, HospitalizationRow{
			Date:             date,
			Location:         row["location"],
			AgeGroup:         toString(row["age_group"]),
			Gender:           toString(row["gender"]),
			RespiratoryCases: toInt(row["respiratory_cases"]),
			HospitalDays:     toInt(row["hospital_days"]),
		})
	}
	return out, nil
}

// Income reads and parses the income proxy CSV.
func (s *CSVSource) Income(_ context.Context) ([]IncomeRow, error) {
	rows, err := s.readCSV(SourceIncome, incomeFile, incomeColumns)
	if err != nil {
		return nil, err
	}

	out := make([]IncomeRow, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row["date"])
		if err != nil {
			return nil, rowError(SourceIncome, i, err)
		}
		out = append(out, IncomeRow{
			Date:             date,
			Location:         row["location"],
			AvgDailyWage:     toFloat(row["avg_daily_wage"]),
			TreatmentCostEst: toFloat(row["treatment_cost_est"]),
		})
	}
	return out, nil
}

// readCSV loads a CSV file into header-keyed rows after checking that every
// required column is present.
func (s *CSVSource) readCSV(source, file string, required []string) ([]map[string]string, error) {
	path := filepath.Join(s.dir, file)
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceUnavailableError{Source: source, Path: path, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &SourceUnavailableError{Source: source, Path: path, Err: err}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Source: source, Missing: missing}
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SourceUnavailableError{Source: source, Path: path, Err: err}
		}

		row := make(map[string]string, len(required))
		for _, name := range required {
			if i := index[name]; i < len(fields) {
				row[name] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func rowError(source string, row int, err error) error {
	return &SchemaMismatchError{
		Source:  source,
		Message: fmt.Sprintf("row %d: %v", row+1, err),
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// toFloat coerces a CSV cell to a float pointer. Empty or malformed cells
// become null.
func toFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return nil
	}
	return &v
}

func toInt(s string) *int {
	if s == "" {
		return nil
	}
	v, err := cast.ToIntE(s)
	if err != nil {
		return nil
	}
	return &v
}

func toString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

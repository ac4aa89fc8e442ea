package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Dataset is an ordered collection of Records sharing a uniform schema.
// Row order carries no meaning; all operations treat it as a set.
type Dataset []Record

// ColumnKind classifies a column's semantic type
type ColumnKind int

const (
	KindDate ColumnKind = iota
	KindCategory
	KindNumeric
)

// String returns string representation of a column kind
func (k ColumnKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindCategory:
		return "category"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Column describes one column of the uniform schema: its name, kind, and
// typed accessors. The bool return reports whether the value is non-null.
type Column struct {
	Name     string
	Kind     ColumnKind
	Numeric  func(r *Record) (float64, bool)
	Category func(r *Record) (string, bool)
	Date     func(r *Record) (time.Time, bool)
}

func floatCol(name string, get func(r *Record) *float64) Column {
	return Column{
		Name: name,
		Kind: KindNumeric,
		Numeric: func(r *Record) (float64, bool) {
			if p := get(r); p != nil {
				return *p, true
			}
			return math.NaN(), false
		},
	}
}

func intCol(name string, get func(r *Record) *int) Column {
	return Column{
		Name: name,
		Kind: KindNumeric,
		Numeric: func(r *Record) (float64, bool) {
			if p := get(r); p != nil {
				return float64(*p), true
			}
			return math.NaN(), false
		},
	}
}

func categoryCol(name string, get func(r *Record) *string) Column {
	return Column{
		Name: name,
		Kind: KindCategory,
		Category: func(r *Record) (string, bool) {
			if p := get(r); p != nil {
				return *p, true
			}
			return "", false
		},
	}
}

// columns is the fixed schema registry, in canonical order.
var columns = []Column{
	{
		Name: "date",
		Kind: KindDate,
		Date: func(r *Record) (time.Time, bool) { return r.Date, !r.Date.IsZero() },
	},
	{
		Name: "location",
		Kind: KindCategory,
		Category: func(r *Record) (string, bool) { return r.Location, r.Location != "" },
	},
	floatCol("pm25", func(r *Record) *float64 { return r.PM25 }),
	floatCol("pm10", func(r *Record) *float64 { return r.PM10 }),
	intCol("aqi", func(r *Record) *int { return r.AQI }),
	floatCol("temperature", func(r *Record) *float64 { return r.Temperature }),
	floatCol("wind_speed", func(r *Record) *float64 { return r.WindSpeed }),
	floatCol("sunlight", func(r *Record) *float64 { return r.Sunlight }),
	categoryCol("season", func(r *Record) *string { return r.Season }),
	categoryCol("age_group", func(r *Record) *string { return r.AgeGroup }),
	categoryCol("gender", func(r *Record) *string { return r.Gender }),
	intCol("respiratory_cases", func(r *Record) *int { return r.RespiratoryCases }),
	intCol("hospital_days", func(r *Record) *int { return r.HospitalDays }),
	floatCol("avg_daily_wage", func(r *Record) *float64 { return r.AvgDailyWage }),
	floatCol("treatment_cost_est", func(r *Record) *float64 { return r.TreatmentCostEst }),
	floatCol("income_stress_index", func(r *Record) *float64 { return r.IncomeStressIndex }),
}

// Columns returns the schema registry in canonical order
func Columns() []Column {
	return columns
}

// ColumnByName looks up a column by name
func ColumnByName(name string) (Column, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// NumericColumnNames returns the names of all numeric columns in schema order
func NumericColumnNames() []string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Kind == KindNumeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// ColumnNames returns all column names in schema order
func ColumnNames() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// RequiredColumns is the default set of columns the analysis depends on.
var RequiredColumns = []string{"date", "location", "aqi", "pm25", "respiratory_cases", "income_stress_index"}

// Len returns the number of rows
func (d Dataset) Len() int {
	return len(d)
}

// IsEmpty reports whether the dataset has no rows
func (d Dataset) IsEmpty() bool {
	return len(d) == 0
}

// Clone returns a copy of the dataset sharing no backing storage with the
// original slice header. Pointer targets are not copied; records are never
// mutated in place, so aliasing is safe.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// NumericColumn extracts a numeric column as a float64 slice aligned with
// the dataset rows, with NaN in null positions.
func (d Dataset) NumericColumn(name string) ([]float64, error) {
	col, ok := ColumnByName(name)
	if !ok || col.Kind != KindNumeric {
		return nil, fmt.Errorf("unknown numeric column: %s", name)
	}

	values := make([]float64, len(d))
	for i := range d {
		v, ok := col.Numeric(&d[i])
		if !ok {
			v = math.NaN()
		}
		values[i] = v
	}
	return values, nil
}

// NonNullCount returns, for the given column, the number of rows with a
// non-null value.
func (d Dataset) NonNullCount(col Column) int {
	count := 0
	for i := range d {
		if columnPresent(col, &d[i]) {
			count++
		}
	}
	return count
}

// columnPresent reports whether a record has a non-null value in col.
func columnPresent(col Column, r *Record) bool {
	switch col.Kind {
	case KindDate:
		_, ok := col.Date(r)
		return ok
	case KindCategory:
		_, ok := col.Category(r)
		return ok
	default:
		_, ok := col.Numeric(r)
		return ok
	}
}

// RowCompleteness returns the fraction of non-null values in row i, counting
// only the given columns.
func (d Dataset) RowCompleteness(i int, cols []Column) float64 {
	if len(cols) == 0 {
		return 0
	}
	present := 0
	for _, col := range cols {
		if columnPresent(col, &d[i]) {
			present++
		}
	}
	return float64(present) / float64(len(cols))
}

// DedupKey builds a canonical string key over every column of row i, used
// for exact full-row duplicate detection.
func (d Dataset) DedupKey(i int) string {
	r := &d[i]
	var b strings.Builder
	for _, col := range columns {
		switch col.Kind {
		case KindDate:
			if v, ok := col.Date(r); ok {
				b.WriteString(v.Format("2006-01-02"))
			}
		case KindCategory:
			if v, ok := col.Category(r); ok {
				b.WriteString(v)
			}
		default:
			if v, ok := col.Numeric(r); ok {
				fmt.Fprintf(&b, "%v", v)
			}
		}
		b.WriteByte('|')
	}
	return b.String()
}

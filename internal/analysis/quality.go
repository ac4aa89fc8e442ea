package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"airhealth-platform/internal/models"
)

// OutlierKeyColumns are the numeric columns screened for IQR outliers, both
// here and in the outlier-exclusion filter stage.
var OutlierKeyColumns = []string{"aqi", "pm25", "respiratory_cases"}

// Physical plausibility ranges for sensor-derived columns.
var plausibleRanges = map[string][2]float64{
	"aqi":  {0, 500},
	"pm25": {0, 1000},
}

// Quality score deduction weights.
const (
	invalidPenalty          = 50.0
	completenessTarget      = 0.9
	completenessWeight      = 30.0
	duplicateTolerancePct   = 5.0
	duplicatePenaltyCapPct  = 20.0
	outlierTolerancePct     = 10.0
	outlierPenaltyCapPct    = 15.0
	columnCompletenessFloor = 0.8
)

// ColumnProfile summarizes one column of the dataset. Min, Max, and Mean
// are nil when a non-finite value would otherwise be reported; HasInfinite
// flags that case.
type ColumnProfile struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	NonNullCount int      `json:"non_null_count"`
	NullCount    int      `json:"null_count"`
	Completeness float64  `json:"completeness"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Mean         *float64 `json:"mean,omitempty"`
	HasNegative  bool     `json:"has_negative,omitempty"`
	HasZero      bool     `json:"has_zero,omitempty"`
	HasInfinite  bool     `json:"has_infinite,omitempty"`
	UniqueValues int      `json:"unique_values,omitempty"`
	SpanDays     *int     `json:"span_days,omitempty"`
}

// OutlierMetric reports IQR outliers for one column.
type OutlierMetric struct {
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// DateRange is the observed span of the date column.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// QualityReport is the full validation outcome for a dataset.
type QualityReport struct {
	ID                  string                   `json:"id"`
	GeneratedAt         time.Time                `json:"generated_at"`
	RowCount            int                      `json:"row_count"`
	IsValid             bool                     `json:"is_valid"`
	QualityScore        float64                  `json:"quality_score"`
	Issues              []string                 `json:"issues"`
	Warnings            []string                 `json:"warnings"`
	OverallCompleteness float64                  `json:"overall_completeness"`
	ColumnCompleteness  map[string]float64       `json:"column_completeness"`
	DuplicateCount      int                      `json:"duplicate_count"`
	DuplicatePercent    float64                  `json:"duplicate_percent"`
	Columns             []ColumnProfile          `json:"columns"`
	Outliers            map[string]OutlierMetric `json:"outliers"`
	DateRange           *DateRange               `json:"date_range,omitempty"`
}

// Validate inspects the dataset and produces a quality report. Issues mark
// the dataset invalid; warnings annotate it without failing validation.
// requiredColumns lists the columns the downstream analysis cannot run
// without; nil falls back to models.RequiredColumns.
func Validate(ds models.Dataset, requiredColumns []string) QualityReport {
	if requiredColumns == nil {
		requiredColumns = models.RequiredColumns
	}

	report := QualityReport{
		ID:                 uuid.New().String(),
		GeneratedAt:        time.Now().UTC(),
		RowCount:           ds.Len(),
		IsValid:            true,
		Issues:             []string{},
		Warnings:           []string{},
		ColumnCompleteness: make(map[string]float64),
		Outliers:           make(map[string]OutlierMetric),
	}

	if ds.IsEmpty() {
		report.IsValid = false
		report.Issues = append(report.Issues, "dataset is empty")
		report.QualityScore = 0
		return report
	}

	profileColumns(ds, &report)
	checkRequired(ds, requiredColumns, &report)
	checkDuplicates(ds, &report)
	checkOutliers(ds, &report)
	checkPlausibleRanges(ds, &report)

	report.QualityScore = scoreReport(&report)
	return report
}

func profileColumns(ds models.Dataset, report *QualityReport) {
	totalCells := 0
	nonNullCells := 0

	for _, col := range models.Columns() {
		nonNull := ds.NonNullCount(col)
		completeness := float64(nonNull) / float64(ds.Len())

		profile := ColumnProfile{
			Name:         col.Name,
			Kind:         col.Kind.String(),
			NonNullCount: nonNull,
			NullCount:    ds.Len() - nonNull,
			Completeness: completeness,
		}

		switch col.Kind {
		case models.KindNumeric:
			values, _ := ds.NumericColumn(col.Name)
			clean := dropNaN(values)
			if len(clean) > 0 {
				min, max := clean[0], clean[0]
				for _, v := range clean {
					if v < min {
						min = v
					}
					if v > max {
						max = v
					}
					if math.IsInf(v, 0) {
						profile.HasInfinite = true
					}
					if v < 0 {
						profile.HasNegative = true
					}
					if v == 0 {
						profile.HasZero = true
					}
				}
				profile.Min = finitePtr(min)
				profile.Max = finitePtr(max)
				profile.Mean = finitePtr(stat.Mean(clean, nil))
			}
		case models.KindCategory:
			seen := make(map[string]struct{})
			for i := range ds {
				if v, ok := col.Category(&ds[i]); ok {
					seen[v] = struct{}{}
				}
			}
			profile.UniqueValues = len(seen)
		case models.KindDate:
			var start, end time.Time
			for i := range ds {
				if v, ok := col.Date(&ds[i]); ok {
					if start.IsZero() || v.Before(start) {
						start = v
					}
					if v.After(end) {
						end = v
					}
				}
			}
			if !start.IsZero() {
				report.DateRange = &DateRange{Start: start, End: end}
				days := int(end.Sub(start).Hours() / 24)
				profile.SpanDays = &days
			}
		}

		totalCells += ds.Len()
		nonNullCells += nonNull
		report.Columns = append(report.Columns, profile)
		report.ColumnCompleteness[col.Name] = completeness

		if nonNull == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("column %s has no values", col.Name))
		} else if completeness < columnCompletenessFloor {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("column %s is only %.1f%% complete", col.Name, completeness*100))
		}
	}

	report.OverallCompleteness = float64(nonNullCells) / float64(totalCells)
}

// finitePtr returns a pointer to v, or nil when v cannot be represented in
// JSON.
func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func checkRequired(ds models.Dataset, required []string, report *QualityReport) {
	for _, name := range required {
		col, ok := models.ColumnByName(name)
		if !ok {
			report.IsValid = false
			report.Issues = append(report.Issues, fmt.Sprintf("required column %s is not in the schema", name))
			continue
		}
		if ds.NonNullCount(col) == 0 {
			report.IsValid = false
			report.Issues = append(report.Issues, fmt.Sprintf("required column %s has no values", name))
		}
	}
}

func checkDuplicates(ds models.Dataset, report *QualityReport) {
	seen := make(map[string]struct{}, ds.Len())
	duplicates := 0
	for i := range ds {
		key := ds.DedupKey(i)
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}

	report.DuplicateCount = duplicates
	report.DuplicatePercent = float64(duplicates) / float64(ds.Len()) * 100
	if duplicates > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d duplicate rows (%.1f%%)", duplicates, report.DuplicatePercent))
	}
}

func checkOutliers(ds models.Dataset, report *QualityReport) {
	for _, name := range OutlierKeyColumns {
		values, err := ds.NumericColumn(name)
		if err != nil {
			continue
		}
		clean := dropNaN(values)
		if len(clean) == 0 {
			continue
		}

		lower, upper, _ := IQRFences(clean)
		if math.IsNaN(lower) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
			continue
		}
		count := 0
		for _, v := range clean {
			if v < lower || v > upper {
				count++
			}
		}

		metric := OutlierMetric{
			Count:      count,
			Percent:    float64(count) / float64(len(clean)) * 100,
			LowerBound: lower,
			UpperBound: upper,
		}
		report.Outliers[name] = metric

		if count > 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("column %s has %d outliers (%.1f%%)", name, count, metric.Percent))
		}
	}
}

func checkPlausibleRanges(ds models.Dataset, report *QualityReport) {
	for name, bounds := range plausibleRanges {
		values, err := ds.NumericColumn(name)
		if err != nil {
			continue
		}
		violations := 0
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < bounds[0] || v > bounds[1] {
				violations++
			}
		}
		if violations > 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("column %s has %d values outside [%g, %g]", name, violations, bounds[0], bounds[1]))
		}
	}
}

// scoreReport computes the additive quality score. Deductions accumulate
// from validity, completeness, duplication, and outlier prevalence; the
// result is clamped to [0, 100].
func scoreReport(report *QualityReport) float64 {
	score := 100.0

	if !report.IsValid {
		score -= invalidPenalty
	}

	if report.OverallCompleteness < completenessTarget {
		score -= (completenessTarget - report.OverallCompleteness) * completenessWeight
	}

	if report.DuplicatePercent > duplicateTolerancePct {
		score -= math.Min(report.DuplicatePercent-duplicateTolerancePct, duplicatePenaltyCapPct)
	}

	if len(report.Outliers) > 0 {
		total := 0.0
		for _, m := range report.Outliers {
			total += m.Percent
		}
		avg := total / float64(len(report.Outliers))
		if avg > outlierTolerancePct {
			score -= math.Min(avg-outlierTolerancePct, outlierPenaltyCapPct)
		}
	}

	return math.Max(score, 0)
}

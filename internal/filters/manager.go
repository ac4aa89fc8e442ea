package filters

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"airhealth-platform/internal/analysis"
	"airhealth-platform/internal/models"
)

// Stage names in chain order.
const (
	StageLocation     = "location"
	StageDemographics = "demographics"
	StageEnvironment  = "environment"
	StageTime         = "time"
	StageThreshold    = "threshold"
	StageQuality      = "quality"
)

// outlierMinRows is the smallest view the outlier-exclusion step will touch.
const outlierMinRows = 10

// InvalidRangeError reports a filter range whose bounds are inverted. The
// filter chain state is untouched when this is returned.
type InvalidRangeError struct {
	Stage string
	Field string
	Min   string
	Max   string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("%s filter: %s range is invalid (min %s > max %s)", e.Stage, e.Field, e.Min, e.Max)
}

// IsTransient returns false; an inverted range never succeeds on retry.
func (e *InvalidRangeError) IsTransient() bool {
	return false
}

// StageRecord is the provenance entry for one applied filter stage.
type StageRecord struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
	Before int                    `json:"before"`
	After  int                    `json:"after"`
}

// LocationParams selects rows by location name.
type LocationParams struct {
	Locations []string `json:"locations,omitempty"`
}

// DemographicParams selects rows by age group and gender.
type DemographicParams struct {
	AgeGroups []string `json:"age_groups,omitempty"`
	Genders   []string `json:"genders,omitempty"`
}

// EnvironmentParams selects rows by season and pollution levels. Nil bounds
// are open; active bounds exclude rows with a null value in that column.
type EnvironmentParams struct {
	Seasons []string `json:"seasons,omitempty"`
	AQIMin  *float64 `json:"aqi_min,omitempty"`
	AQIMax  *float64 `json:"aqi_max,omitempty"`
	PM25Min *float64 `json:"pm25_min,omitempty"`
	PM25Max *float64 `json:"pm25_max,omitempty"`
}

// TimeParams selects rows by inclusive date range.
type TimeParams struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// ThresholdParams selects rows by derived-metric ranges.
type ThresholdParams struct {
	IncomeStressMin     *float64 `json:"income_stress_min,omitempty"`
	IncomeStressMax     *float64 `json:"income_stress_max,omitempty"`
	RespiratoryCasesMin *float64 `json:"respiratory_cases_min,omitempty"`
	RespiratoryCasesMax *float64 `json:"respiratory_cases_max,omitempty"`
}

// QualityParams filters on statistical data-quality criteria.
type QualityParams struct {
	// MinSampleSize empties the view outright when the current row count
	// falls below it. Zero or negative disables the check.
	MinSampleSize int `json:"min_sample_size,omitempty"`
	// MinCompleteness keeps rows whose fraction of non-null values, over
	// the columns that are not entirely null in the current view, meets
	// the threshold. Values outside [0, 1] disable the check.
	MinCompleteness *float64 `json:"min_completeness,omitempty"`
	// ExcludeOutliers drops rows outside the 1.5*IQR fences of the key
	// numeric columns. Null values pass through.
	ExcludeOutliers bool `json:"exclude_outliers,omitempty"`
}

// Manager applies filter stages to a dataset view while keeping the
// original dataset and per-stage provenance. Not safe for concurrent use.
type Manager struct {
	original models.Dataset
	filtered models.Dataset
	stages   []StageRecord
}

// NewManager creates a filter manager over the given dataset.
func NewManager(ds models.Dataset) *Manager {
	return &Manager{
		original: ds.Clone(),
		filtered: ds.Clone(),
	}
}

// Original returns the unfiltered dataset.
func (m *Manager) Original() models.Dataset {
	return m.original
}

// Filtered returns the current filtered view.
func (m *Manager) Filtered() models.Dataset {
	return m.filtered
}

// Stages returns the provenance records of the applied stages.
func (m *Manager) Stages() []StageRecord {
	out := make([]StageRecord, len(m.stages))
	copy(out, m.stages)
	return out
}

// Reset discards all filters and restores the original view.
func (m *Manager) Reset() {
	m.filtered = m.original.Clone()
	m.stages = nil
}

func (m *Manager) record(name string, params map[string]interface{}, before int) {
	m.stages = append(m.stages, StageRecord{
		Name:   name,
		Params: params,
		Before: before,
		After:  m.filtered.Len(),
	})
}

func keepRows(ds models.Dataset, keep func(r *models.Record) bool) models.Dataset {
	out := make(models.Dataset, 0, len(ds))
	for i := range ds {
		if keep(&ds[i]) {
			out = append(out, ds[i])
		}
	}
	return out
}

func inSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ApplyLocation keeps rows whose location is in the given list. An empty
// list is a no-op.
func (m *Manager) ApplyLocation(p LocationParams) error {
	if len(p.Locations) == 0 {
		return nil
	}

	before := m.filtered.Len()
	set := inSet(p.Locations)
	m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
		_, ok := set[r.Location]
		return ok
	})

	m.record(StageLocation, map[string]interface{}{"locations": p.Locations}, before)
	return nil
}

// ApplyDemographics keeps rows matching the given age groups and genders.
// Rows with a null value in an actively filtered column are dropped. Empty
// lists are no-ops.
func (m *Manager) ApplyDemographics(p DemographicParams) error {
	if len(p.AgeGroups) == 0 && len(p.Genders) == 0 {
		return nil
	}

	before := m.filtered.Len()
	params := make(map[string]interface{})

	if len(p.AgeGroups) > 0 {
		set := inSet(p.AgeGroups)
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			if r.AgeGroup == nil {
				return false
			}
			_, ok := set[*r.AgeGroup]
			return ok
		})
		params["age_groups"] = p.AgeGroups
	}

	if len(p.Genders) > 0 {
		set := inSet(p.Genders)
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			if r.Gender == nil {
				return false
			}
			_, ok := set[*r.Gender]
			return ok
		})
		params["genders"] = p.Genders
	}

	m.record(StageDemographics, params, before)
	return nil
}

// ApplyEnvironment keeps rows matching the given seasons and pollution
// ranges. Inverted ranges are rejected before any row is touched.
func (m *Manager) ApplyEnvironment(p EnvironmentParams) error {
	if len(p.Seasons) == 0 && p.AQIMin == nil && p.AQIMax == nil && p.PM25Min == nil && p.PM25Max == nil {
		return nil
	}

	if err := checkRange(StageEnvironment, "aqi", p.AQIMin, p.AQIMax); err != nil {
		return err
	}
	if err := checkRange(StageEnvironment, "pm25", p.PM25Min, p.PM25Max); err != nil {
		return err
	}

	before := m.filtered.Len()
	params := make(map[string]interface{})

	if len(p.Seasons) > 0 {
		set := inSet(p.Seasons)
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			if r.Season == nil {
				return false
			}
			_, ok := set[*r.Season]
			return ok
		})
		params["seasons"] = p.Seasons
	}

	aqiValue := func(r *models.Record) (float64, bool) {
		if r.AQI == nil {
			return 0, false
		}
		return float64(*r.AQI), true
	}
	pm25Value := func(r *models.Record) (float64, bool) {
		if r.PM25 == nil {
			return 0, false
		}
		return *r.PM25, true
	}

	m.applyNumericBounds(aqiValue, "aqi", p.AQIMin, p.AQIMax, params)
	m.applyNumericBounds(pm25Value, "pm25", p.PM25Min, p.PM25Max, params)

	m.record(StageEnvironment, params, before)
	return nil
}

// ApplyTimeRange keeps rows whose date falls in the inclusive range. An
// inverted range is rejected before any row is touched.
func (m *Manager) ApplyTimeRange(p TimeParams) error {
	if p.StartDate == nil && p.EndDate == nil {
		return nil
	}

	if p.StartDate != nil && p.EndDate != nil && p.StartDate.After(*p.EndDate) {
		return &InvalidRangeError{
			Stage: StageTime,
			Field: "date",
			Min:   p.StartDate.Format("2006-01-02"),
			Max:   p.EndDate.Format("2006-01-02"),
		}
	}

	before := m.filtered.Len()
	params := make(map[string]interface{})

	if p.StartDate != nil {
		start := *p.StartDate
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			return !r.Date.Before(start)
		})
		params["start_date"] = start.Format("2006-01-02")
	}

	if p.EndDate != nil {
		end := *p.EndDate
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			return !r.Date.After(end)
		})
		params["end_date"] = end.Format("2006-01-02")
	}

	m.record(StageTime, params, before)
	return nil
}

// ApplyThresholds keeps rows within the given derived-metric ranges.
// Inverted ranges are rejected before any row is touched.
func (m *Manager) ApplyThresholds(p ThresholdParams) error {
	if p.IncomeStressMin == nil && p.IncomeStressMax == nil &&
		p.RespiratoryCasesMin == nil && p.RespiratoryCasesMax == nil {
		return nil
	}

	if err := checkRange(StageThreshold, "income_stress_index", p.IncomeStressMin, p.IncomeStressMax); err != nil {
		return err
	}
	if err := checkRange(StageThreshold, "respiratory_cases", p.RespiratoryCasesMin, p.RespiratoryCasesMax); err != nil {
		return err
	}

	before := m.filtered.Len()
	params := make(map[string]interface{})

	stressValue := func(r *models.Record) (float64, bool) {
		if r.IncomeStressIndex == nil {
			return 0, false
		}
		return *r.IncomeStressIndex, true
	}
	casesValue := func(r *models.Record) (float64, bool) {
		if r.RespiratoryCases == nil {
			return 0, false
		}
		return float64(*r.RespiratoryCases), true
	}

	m.applyNumericBounds(stressValue, "income_stress", p.IncomeStressMin, p.IncomeStressMax, params)
	m.applyNumericBounds(casesValue, "respiratory_cases", p.RespiratoryCasesMin, p.RespiratoryCasesMax, params)

	m.record(StageThreshold, params, before)
	return nil
}

// applyNumericBounds narrows the view to rows whose value satisfies the
// active bounds. Rows with a null value are dropped by an active bound.
func (m *Manager) applyNumericBounds(value func(r *models.Record) (float64, bool), field string, min, max *float64, params map[string]interface{}) {
	if min != nil {
		lo := *min
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			v, ok := value(r)
			return ok && v >= lo
		})
		params[field+"_min"] = lo
	}

	if max != nil {
		hi := *max
		m.filtered = keepRows(m.filtered, func(r *models.Record) bool {
			v, ok := value(r)
			return ok && v <= hi
		})
		params[field+"_max"] = hi
	}
}

func checkRange(stage, field string, min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return &InvalidRangeError{
			Stage: stage,
			Field: field,
			Min:   fmt.Sprintf("%g", *min),
			Max:   fmt.Sprintf("%g", *max),
		}
	}
	return nil
}

// ApplyQuality filters the view on statistical quality criteria. An empty
// view is a silent no-op. The sample-size floor empties the view outright
// when unmet; completeness and outlier exclusion then narrow row by row.
func (m *Manager) ApplyQuality(p QualityParams) error {
	if m.filtered.IsEmpty() {
		return nil
	}

	sampleActive := p.MinSampleSize > 0
	completenessActive := p.MinCompleteness != nil && *p.MinCompleteness >= 0 && *p.MinCompleteness <= 1
	if !sampleActive && !completenessActive && !p.ExcludeOutliers {
		return nil
	}

	before := m.filtered.Len()
	params := make(map[string]interface{})

	if sampleActive {
		params["min_sample_size"] = p.MinSampleSize
		if m.filtered.Len() < p.MinSampleSize {
			m.filtered = models.Dataset{}
			m.record(StageQuality, params, before)
			return nil
		}
	}

	if completenessActive {
		m.applyCompleteness(*p.MinCompleteness)
		params["min_completeness"] = *p.MinCompleteness
	}

	if p.ExcludeOutliers {
		params["exclude_outliers"] = true
		if m.filtered.Len() > outlierMinRows {
			m.applyOutlierExclusion()
		} else {
			params["outlier_exclusion_skipped"] = true
		}
	}

	m.record(StageQuality, params, before)
	return nil
}

// applyCompleteness keeps rows whose non-null fraction, measured over the
// columns that still have any data in the current view, meets the
// threshold.
func (m *Manager) applyCompleteness(threshold float64) {
	var populated []models.Column
	for _, col := range models.Columns() {
		if m.filtered.NonNullCount(col) > 0 {
			populated = append(populated, col)
		}
	}

	if len(populated) == 0 {
		m.filtered = models.Dataset{}
		return
	}

	kept := make(models.Dataset, 0, m.filtered.Len())
	for i := range m.filtered {
		if m.filtered.RowCompleteness(i, populated) >= threshold {
			kept = append(kept, m.filtered[i])
		}
	}
	m.filtered = kept
}

// applyOutlierExclusion drops rows outside the 1.5*IQR fences of each key
// numeric column in turn. A column is skipped when the view has shrunk to
// 10 rows or fewer, when it has too few valid values, or when its IQR is
// degenerate. Null values are never treated as outliers.
func (m *Manager) applyOutlierExclusion() {
	for _, name := range analysis.OutlierKeyColumns {
		if m.filtered.Len() <= outlierMinRows {
			return
		}

		values, err := m.filtered.NumericColumn(name)
		if err != nil {
			continue
		}

		clean := make([]float64, 0, len(values))
		for _, v := range values {
			if !math.IsNaN(v) {
				clean = append(clean, v)
			}
		}
		if len(clean) <= outlierMinRows {
			continue
		}

		lower, upper, iqr := analysis.IQRFences(clean)
		if math.IsNaN(iqr) || iqr <= 0 {
			continue
		}

		kept := make(models.Dataset, 0, m.filtered.Len())
		for i, v := range values {
			if math.IsNaN(v) || (v >= lower && v <= upper) {
				kept = append(kept, m.filtered[i])
			}
		}
		m.filtered = kept
	}
}

// NumericRange is the observed span of one numeric column.
type NumericRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// DateSpan is the observed span of the date column.
type DateSpan struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// AvailableValues enumerates the filterable values of the original
// dataset, regardless of the currently applied filters.
type AvailableValues struct {
	Locations     []string                `json:"locations"`
	AgeGroups     []string                `json:"age_groups"`
	Genders       []string                `json:"genders"`
	Seasons       []string                `json:"seasons"`
	NumericRanges map[string]NumericRange `json:"numeric_ranges"`
	DateRange     *DateSpan               `json:"date_range,omitempty"`
}

// AvailableValues computes the filterable values from the original
// dataset.
func (m *Manager) AvailableValues() AvailableValues {
	values := AvailableValues{
		Locations:     uniqueSorted(m.original, func(r *models.Record) (string, bool) { return r.Location, r.Location != "" }),
		AgeGroups:     uniqueSorted(m.original, derefString(func(r *models.Record) *string { return r.AgeGroup })),
		Genders:       uniqueSorted(m.original, derefString(func(r *models.Record) *string { return r.Gender })),
		Seasons:       uniqueSorted(m.original, derefString(func(r *models.Record) *string { return r.Season })),
		NumericRanges: make(map[string]NumericRange),
	}

	for _, name := range analysis.OutlierKeyColumns {
		raw, err := m.original.NumericColumn(name)
		if err != nil {
			continue
		}
		var clean []float64
		for _, v := range raw {
			if !math.IsNaN(v) {
				clean = append(clean, v)
			}
		}
		if len(clean) == 0 {
			continue
		}

		min, max := clean[0], clean[0]
		for _, v := range clean {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		values.NumericRanges[name] = NumericRange{Min: min, Max: max, Mean: stat.Mean(clean, nil)}
	}

	for i := range m.original {
		d := m.original[i].Date
		if d.IsZero() {
			continue
		}
		if values.DateRange == nil {
			values.DateRange = &DateSpan{Min: d, Max: d}
			continue
		}
		if d.Before(values.DateRange.Min) {
			values.DateRange.Min = d
		}
		if d.After(values.DateRange.Max) {
			values.DateRange.Max = d
		}
	}

	return values
}

func derefString(get func(r *models.Record) *string) func(r *models.Record) (string, bool) {
	return func(r *models.Record) (string, bool) {
		if p := get(r); p != nil {
			return *p, true
		}
		return "", false
	}
}

func uniqueSorted(ds models.Dataset, get func(r *models.Record) (string, bool)) []string {
	seen := make(map[string]struct{})
	for i := range ds {
		if v, ok := get(&ds[i]); ok {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Summary reports the cumulative effect of the applied filter chain.
type Summary struct {
	OriginalRecords int           `json:"original_records"`
	FilteredRecords int           `json:"filtered_records"`
	RecordsRemoved  int           `json:"records_removed"`
	RetentionRate   float64       `json:"retention_rate"`
	ActiveFilters   int           `json:"active_filters"`
	FilterDetails   []StageRecord `json:"filter_details"`
}

// Summary builds the current filter chain summary.
func (m *Manager) Summary() Summary {
	retention := 0.0
	if m.original.Len() > 0 {
		retention = float64(m.filtered.Len()) / float64(m.original.Len())
	}

	return Summary{
		OriginalRecords: m.original.Len(),
		FilteredRecords: m.filtered.Len(),
		RecordsRemoved:  m.original.Len() - m.filtered.Len(),
		RetentionRate:   retention,
		ActiveFilters:   len(m.stages),
		FilterDetails:   m.Stages(),
	}
}

// CombinationCheck is a pre-flight assessment of quality filter settings
// against the current view.
type CombinationCheck struct {
	IsValid            bool     `json:"is_valid"`
	Warnings           []string `json:"warnings"`
	EstimatedRetention float64  `json:"estimated_retention"`
}

// ValidateCombination checks quality filter settings against the current
// view before they are applied.
func (m *Manager) ValidateCombination(p QualityParams) CombinationCheck {
	check := CombinationCheck{IsValid: true, Warnings: []string{}, EstimatedRetention: 1.0}

	if m.filtered.IsEmpty() {
		check.IsValid = false
		check.Warnings = append(check.Warnings, "no data available for filtering")
		return check
	}

	if p.MinSampleSize > m.filtered.Len() {
		check.Warnings = append(check.Warnings,
			fmt.Sprintf("sample size requirement (%d) exceeds available data (%d)", p.MinSampleSize, m.filtered.Len()))
		check.EstimatedRetention = 0.0
	}

	if p.MinCompleteness != nil && *p.MinCompleteness > 0.8 {
		check.Warnings = append(check.Warnings, "high completeness requirement may significantly reduce dataset")
	}

	if len(m.stages) > 5 {
		check.Warnings = append(check.Warnings, "many filters active, consider simplifying")
	}

	return check
}

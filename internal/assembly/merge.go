package assembly

import (
	"context"
	"fmt"
	"time"

	"airhealth-platform/internal/analysis"
	"airhealth-platform/internal/models"
	"airhealth-platform/pkg/logging"
	"airhealth-platform/pkg/metrics"
)

// Assembler loads the three raw sources and merges them into the analysis
// dataset.
type Assembler struct {
	source  Source
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAssembler creates an assembler over the given source.
func NewAssembler(source Source, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Assembler {
	return &Assembler{
		source:  source,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Assemble loads all sources, validates their value ranges, and inner-joins
// them on (date, location). Keys appearing multiple times in a source
// produce one merged record per combination.
func (a *Assembler) Assemble(ctx context.Context) (models.Dataset, error) {
	timer := a.metrics.NewTimer(a.metrics.AssemblyDuration)
	defer timer.ObserveDuration()

	a.logger.Info(ctx, "[ASSEMBLY_START] Loading source datasets", nil)

	env, err := a.source.Environmental(ctx)
	if err != nil {
		a.metrics.RecordAssemblyError(SourceEnvironmental)
		return nil, fmt.Errorf("loading environmental data: %w", err)
	}
	if err := validateEnvironmental(env); err != nil {
		a.metrics.RecordAssemblyError(SourceEnvironmental)
		return nil, err
	}

	hosp, err := a.source.Hospitalization(ctx)
	if err != nil {
		a.metrics.RecordAssemblyError(SourceHospitalization)
		return nil, fmt.Errorf("loading hospitalization data: %w", err)
	}
	if err := validateHospitalization(hosp); err != nil {
		a.metrics.RecordAssemblyError(SourceHospitalization)
		return nil, err
	}

	income, err := a.source.Income(ctx)
	if err != nil {
		a.metrics.RecordAssemblyError(SourceIncome)
		return nil, fmt.Errorf("loading income proxy data: %w", err)
	}
	if err := validateIncome(income); err != nil {
		a.metrics.RecordAssemblyError(SourceIncome)
		return nil, err
	}

	a.metrics.AssemblySourceRows.WithLabelValues(SourceEnvironmental).Set(float64(len(env)))
	a.metrics.AssemblySourceRows.WithLabelValues(SourceHospitalization).Set(float64(len(hosp)))
	a.metrics.AssemblySourceRows.WithLabelValues(SourceIncome).Set(float64(len(income)))

	dataset, err := Merge(env, hosp, income)
	if err != nil {
		a.metrics.RecordAssemblyError("merge")
		return nil, err
	}

	a.metrics.AssemblyRecordsTotal.Add(float64(dataset.Len()))
	a.logger.Info(ctx, "[ASSEMBLY_COMPLETE] Merged source datasets", logging.Fields{
		"environmental_rows":   len(env),
		"hospitalization_rows": len(hosp),
		"income_rows":          len(income),
		"merged_records":       dataset.Len(),
	})

	return dataset, nil
}

// Merge inner-joins the three sources on (date, location). Environmental
// rows drive the output order; each matching hospitalization and income
// combination yields one record. The income stress index is derived during
// the merge. An empty join result is a schema mismatch.
func Merge(env []EnvironmentalRow, hosp []HospitalizationRow, income []IncomeRow) (models.Dataset, error) {
	hospByKey := make(map[string][]int, len(hosp))
	for i := range hosp {
		k := joinKey(hosp[i].Date, hosp[i].Location)
		hospByKey[k] = append(hospByKey[k], i)
	}

	incomeByKey := make(map[string][]int, len(income))
	for i := range income {
		k := joinKey(income[i].Date, income[i].Location)
		incomeByKey[k] = append(incomeByKey[k], i)
	}

	var dataset models.Dataset
	for i := range env {
		e := &env[i]
		k := joinKey(e.Date, e.Location)

		for _, hi := range hospByKey[k] {
			h := &hosp[hi]
			for _, ii := range incomeByKey[k] {
				inc := &income[ii]
				dataset = append(dataset, models.Record{
					Date:              e.Date,
					Location:          e.Location,
					PM25:              e.PM25,
					PM10:              e.PM10,
					AQI:               e.AQI,
					Temperature:       e.Temperature,
					WindSpeed:         e.WindSpeed,
					Sunlight:          e.Sunlight,
					Season:            e.Season,
					AgeGroup:          h.AgeGroup,
					Gender:            h.Gender,
					RespiratoryCases:  h.RespiratoryCases,
					HospitalDays:      h.HospitalDays,
					AvgDailyWage:      inc.AvgDailyWage,
					TreatmentCostEst:  inc.TreatmentCostEst,
					IncomeStressIndex: analysis.IncomeStressIndex(h.HospitalDays, inc.AvgDailyWage, inc.TreatmentCostEst),
				})
			}
		}
	}

	if len(dataset) == 0 {
		return nil, &SchemaMismatchError{Message: "no matching records found across datasets"}
	}

	return dataset, nil
}

func joinKey(date time.Time, location string) string {
	return date.Format("2006-01-02") + "\x00" + location
}

func validateEnvironmental(rows []EnvironmentalRow) error {
	for i := range rows {
		r := &rows[i]
		if (r.PM25 != nil && *r.PM25 < 0) || (r.PM10 != nil && *r.PM10 < 0) {
			return &models.ValidationError{
				Field:   "pm25",
				Message: "PM values cannot be negative",
			}
		}
		if r.AQI != nil && (*r.AQI < 0 || *r.AQI > 500) {
			return &models.ValidationError{
				Field:   "aqi",
				Value:   fmt.Sprintf("%d", *r.AQI),
				Message: "AQI values must be between 0 and 500",
			}
		}
	}
	return nil
}

func validateHospitalization(rows []HospitalizationRow) error {
	for i := range rows {
		r := &rows[i]
		if (r.RespiratoryCases != nil && *r.RespiratoryCases < 0) ||
			(r.HospitalDays != nil && *r.HospitalDays < 0) {
			return &models.ValidationError{
				Field:   "respiratory_cases",
				Message: "case counts and hospital days cannot be negative",
			}
		}
	}
	return nil
}

func validateIncome(rows []IncomeRow) error {
	for i := range rows {
		r := &rows[i]
		if (r.AvgDailyWage != nil && *r.AvgDailyWage < 0) ||
			(r.TreatmentCostEst != nil && *r.TreatmentCostEst < 0) {
			return &models.ValidationError{
				Field:   "avg_daily_wage",
				Message: "wage and cost values cannot be negative",
			}
		}
	}
	return nil
}

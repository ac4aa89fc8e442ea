package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"airhealth-platform/internal/analysis"
	"airhealth-platform/internal/assembly"
	"airhealth-platform/internal/filters"
	"airhealth-platform/internal/models"
	"airhealth-platform/pkg/logging"
	"airhealth-platform/pkg/metrics"
)

// ErrDatasetNotLoaded is returned when an operation needs a dataset that
// has not been assembled yet.
var ErrDatasetNotLoaded = errors.New("dataset not loaded")

// CorrelationReport is a correlation result with its display annotations.
type CorrelationReport struct {
	X          string                     `json:"x"`
	Y          string                     `json:"y"`
	Result     analysis.CorrelationResult `json:"result"`
	Badge      analysis.Badge             `json:"badge"`
	EffectSize analysis.EffectSizeResult  `json:"effect_size"`
}

// GroupComparisonReport compares an outcome column between high-AQI and
// normal days.
type GroupComparisonReport struct {
	Column          string                `json:"column"`
	AQIThreshold    float64               `json:"aqi_threshold"`
	TTest           analysis.TTestResult  `json:"t_test"`
	HighMean        analysis.MeanCIResult `json:"high_mean"`
	NormalMean      analysis.MeanCIResult `json:"normal_mean"`
	PercentIncrease float64               `json:"percent_increase"`
}

type memoEntry struct {
	report  CorrelationReport
	expires time.Time
}

// AnalysisService orchestrates dataset assembly, filtering, and the
// statistical analyses over the filtered view.
type AnalysisService struct {
	assembler       *assembly.Assembler
	logger          *logging.StructuredLogger
	metrics         *metrics.Collector
	confidenceLevel float64
	memoTTL         time.Duration

	mu      sync.RWMutex
	manager *filters.Manager

	memoMu      sync.Mutex
	memo        map[uint64]memoEntry
	memoHits    uint64
	memoLookups uint64
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(assembler *assembly.Assembler, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, confidenceLevel float64, memoTTL time.Duration) *AnalysisService {
	return &AnalysisService{
		assembler:       assembler,
		logger:          logger,
		metrics:         metricsCollector,
		confidenceLevel: confidenceLevel,
		memoTTL:         memoTTL,
		memo:            make(map[uint64]memoEntry),
	}
}

// LoadDataset assembles the merged dataset and resets the filter state.
func (s *AnalysisService) LoadDataset(ctx context.Context) error {
	s.logger.Info(ctx, "[DATA_LOAD_START] Assembling analysis dataset", nil)

	dataset, err := s.assembler.Assemble(ctx)
	if err != nil {
		s.logger.Error(ctx, "[DATA_LOAD_ERROR] Dataset assembly failed", nil, err)
		return fmt.Errorf("assembling dataset: %w", err)
	}

	s.mu.Lock()
	s.manager = filters.NewManager(dataset)
	s.mu.Unlock()
	s.clearMemo()

	s.logger.Info(ctx, "[DATA_LOAD_COMPLETE] Analysis dataset ready", logging.Fields{
		"records": dataset.Len(),
	})
	return nil
}

// viewSnapshot copies the filtered view's slice header and stage records
// under the read lock. Filter stages replace the view slice instead of
// mutating it in place, so the copies stay stable after the lock is
// released even while another request applies a new chain.
func (s *AnalysisService) viewSnapshot() (models.Dataset, []filters.StageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return nil, nil, ErrDatasetNotLoaded
	}
	return s.manager.Filtered(), s.manager.Stages(), nil
}

// AvailableValues enumerates the filterable values of the loaded dataset.
func (s *AnalysisService) AvailableValues(ctx context.Context) (filters.AvailableValues, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return filters.AvailableValues{}, ErrDatasetNotLoaded
	}
	return s.manager.AvailableValues(), nil
}

// ApplyFilters resets the filter state and runs the full chain with the
// given parameters. An invalid range leaves the previous unfiltered state
// in place.
func (s *AnalysisService) ApplyFilters(ctx context.Context, req filters.Request) (filters.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager == nil {
		return filters.Summary{}, ErrDatasetNotLoaded
	}

	timer := s.metrics.NewTimer(s.metrics.FilterStageDuration.WithLabelValues("chain"))
	defer timer.ObserveDuration()

	s.manager.Reset()
	if err := s.manager.ApplyChain(req); err != nil {
		s.manager.Reset()
		s.logger.Warn(ctx, "[FILTER_REJECTED] Filter chain rejected", logging.Fields{
			"reason": err.Error(),
		})
		return filters.Summary{}, err
	}

	s.clearMemo()
	summary := s.manager.Summary()

	s.metrics.FilterChainsTotal.Inc()
	s.metrics.FilterRetentionRate.Set(summary.RetentionRate)

	s.logger.Info(ctx, "[FILTER_APPLIED] Filter chain applied", logging.Fields{
		"original_records": summary.OriginalRecords,
		"filtered_records": summary.FilteredRecords,
		"retention_rate":   summary.RetentionRate,
		"active_filters":   summary.ActiveFilters,
	})
	return summary, nil
}

// ResetFilters restores the unfiltered dataset view.
func (s *AnalysisService) ResetFilters(ctx context.Context) (filters.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manager == nil {
		return filters.Summary{}, ErrDatasetNotLoaded
	}

	s.manager.Reset()
	s.clearMemo()
	s.logger.Info(ctx, "[FILTER_RESET] Filters cleared", nil)
	return s.manager.Summary(), nil
}

// FilterSummary reports the current filter chain state.
func (s *AnalysisService) FilterSummary(ctx context.Context) (filters.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return filters.Summary{}, ErrDatasetNotLoaded
	}
	return s.manager.Summary(), nil
}

// Correlation computes the correlation report between two numeric columns
// of the filtered view. Results are memoized per filter state until the
// memo TTL expires.
func (s *AnalysisService) Correlation(ctx context.Context, xColumn, yColumn string) (CorrelationReport, error) {
	view, stages, err := s.viewSnapshot()
	if err != nil {
		return CorrelationReport{}, err
	}

	key := s.memoKey(xColumn, yColumn, view.Len(), stages)
	if report, ok := s.memoGet(key); ok {
		s.logger.Debug(ctx, "[ANALYSIS_MEMO_HIT] Returning memoized correlation", logging.Fields{
			"x": xColumn,
			"y": yColumn,
		})
		return report, nil
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration.WithLabelValues("correlation"))
	defer timer.ObserveDuration()

	x, err := view.NumericColumn(xColumn)
	if err != nil {
		return CorrelationReport{}, err
	}
	y, err := view.NumericColumn(yColumn)
	if err != nil {
		return CorrelationReport{}, err
	}

	result := analysis.CorrelationWithSignificance(x, y, s.confidenceLevel)
	report := CorrelationReport{
		X:          xColumn,
		Y:          yColumn,
		Result:     result,
		Badge:      analysis.SignificanceBadge(result.PValue, result.SignificanceLevel),
		EffectSize: analysis.EffectSize(x, y),
	}

	s.memoPut(key, report)
	s.logger.Info(ctx, "[ANALYSIS_CORR_COMPLETE] Correlation computed", logging.Fields{
		"x":           xColumn,
		"y":           yColumn,
		"sample_size": result.SampleSize,
		"significant": result.IsSignificant,
	})
	return report, nil
}

// CompareHighAQI splits the filtered view at the high-AQI threshold and
// compares the outcome column between the two groups.
func (s *AnalysisService) CompareHighAQI(ctx context.Context, column string, equalVariance bool) (GroupComparisonReport, error) {
	view, _, err := s.viewSnapshot()
	if err != nil {
		return GroupComparisonReport{}, err
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration.WithLabelValues("group_comparison"))
	defer timer.ObserveDuration()

	aqi, err := view.NumericColumn("aqi")
	if err != nil {
		return GroupComparisonReport{}, err
	}
	outcome, err := view.NumericColumn(column)
	if err != nil {
		return GroupComparisonReport{}, err
	}

	var high, normal []float64
	for i := range aqi {
		switch {
		case math.IsNaN(aqi[i]) || math.IsNaN(outcome[i]):
		case aqi[i] > analysis.HighAQIThreshold:
			high = append(high, outcome[i])
		default:
			normal = append(normal, outcome[i])
		}
	}

	report := GroupComparisonReport{
		Column:          column,
		AQIThreshold:    analysis.HighAQIThreshold,
		TTest:           analysis.TTestIndependent(high, normal, equalVariance),
		HighMean:        analysis.ConfidenceIntervalOfMean(high, s.confidenceLevel),
		NormalMean:      analysis.ConfidenceIntervalOfMean(normal, s.confidenceLevel),
		PercentIncrease: analysis.HighAQIPercentageIncrease(aqi, outcome),
	}

	s.logger.Info(ctx, "[ANALYSIS_GROUP_COMPLETE] Group comparison computed", logging.Fields{
		"column":      column,
		"high_rows":   len(high),
		"normal_rows": len(normal),
	})
	return report, nil
}

// Quality validates the filtered view and reports its quality.
func (s *AnalysisService) Quality(ctx context.Context) (analysis.QualityReport, error) {
	view, _, err := s.viewSnapshot()
	if err != nil {
		return analysis.QualityReport{}, err
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration.WithLabelValues("quality"))
	defer timer.ObserveDuration()

	report := analysis.Validate(view, models.RequiredColumns)
	s.metrics.QualityScore.Set(report.QualityScore)

	s.logger.Info(ctx, "[QUALITY_CHECK_COMPLETE] Dataset quality validated", logging.Fields{
		"report_id":     report.ID,
		"is_valid":      report.IsValid,
		"quality_score": report.QualityScore,
		"issues":        len(report.Issues),
		"warnings":      len(report.Warnings),
	})
	return report, nil
}

// Trend builds the trend summary of a numeric column over the filtered
// view.
func (s *AnalysisService) Trend(ctx context.Context, column string, window int) (analysis.TrendSummary, error) {
	view, _, err := s.viewSnapshot()
	if err != nil {
		return analysis.TrendSummary{}, err
	}

	timer := s.metrics.NewTimer(s.metrics.AnalysisDuration.WithLabelValues("trend"))
	defer timer.ObserveDuration()

	summary, err := analysis.AnalyzeTrend(view, column, window)
	if err != nil {
		return analysis.TrendSummary{}, err
	}

	s.logger.Info(ctx, "[ANALYSIS_TREND_COMPLETE] Trend analysis computed", logging.Fields{
		"column":    column,
		"window":    window,
		"direction": summary.Trend.Direction,
	})
	return summary, nil
}

// memoKey hashes the column pair, view size, and filter provenance into a
// cache key. A filter change alters the provenance and therefore the key.
func (s *AnalysisService) memoKey(x, y string, viewLen int, stages []filters.StageRecord) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|", x, y, viewLen)
	if encoded, err := json.Marshal(stages); err == nil {
		h.Write(encoded)
	}
	return h.Sum64()
}

func (s *AnalysisService) memoGet(key uint64) (CorrelationReport, bool) {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()

	s.memoLookups++
	entry, ok := s.memo[key]
	if ok && time.Now().Before(entry.expires) {
		s.memoHits++
		s.updateMemoRatio()
		return entry.report, true
	}
	if ok {
		delete(s.memo, key)
	}
	s.updateMemoRatio()
	return CorrelationReport{}, false
}

func (s *AnalysisService) memoPut(key uint64, report CorrelationReport) {
	if s.memoTTL <= 0 {
		return
	}
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	s.memo[key] = memoEntry{report: report, expires: time.Now().Add(s.memoTTL)}
}

func (s *AnalysisService) clearMemo() {
	s.memoMu.Lock()
	defer s.memoMu.Unlock()
	s.memo = make(map[uint64]memoEntry)
}

func (s *AnalysisService) updateMemoRatio() {
	if s.memoLookups == 0 {
		return
	}
	s.metrics.AnalysisMemoHitRatio.Set(float64(s.memoHits) / float64(s.memoLookups))
}

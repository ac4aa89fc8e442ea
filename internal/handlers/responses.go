package handlers

import (
	"math"
	"time"

	"airhealth-platform/internal/analysis"
	"airhealth-platform/internal/services"
)

// jsonFloat converts a float to a pointer that serializes NaN and infinity
// as null, which encoding/json cannot represent otherwise.
func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type effectSizeResponse struct {
	EffectSize         *float64 `json:"effect_size"`
	AbsoluteEffectSize *float64 `json:"absolute_effect_size"`
	Interpretation     string   `json:"interpretation"`
	SampleSize         int      `json:"sample_size"`
	InsufficientData   bool     `json:"insufficient_data"`
}

type correlationResponse struct {
	X                 string             `json:"x"`
	Y                 string             `json:"y"`
	Correlation       *float64           `json:"correlation"`
	PValue            *float64           `json:"p_value"`
	CILower           *float64           `json:"ci_lower"`
	CIUpper           *float64           `json:"ci_upper"`
	SampleSize        int                `json:"sample_size"`
	ConfidenceLevel   float64            `json:"confidence_level"`
	SignificanceLevel float64            `json:"significance_level"`
	Strength          string             `json:"strength"`
	IsSignificant     bool               `json:"is_significant"`
	InsufficientData  bool               `json:"insufficient_data"`
	Badge             analysis.Badge     `json:"badge"`
	EffectSize        effectSizeResponse `json:"effect_size"`
}

func toCorrelationResponse(report services.CorrelationReport) correlationResponse {
	return correlationResponse{
		X:                 report.X,
		Y:                 report.Y,
		Correlation:       jsonFloat(report.Result.Correlation),
		PValue:            jsonFloat(report.Result.PValue),
		CILower:           jsonFloat(report.Result.CILower),
		CIUpper:           jsonFloat(report.Result.CIUpper),
		SampleSize:        report.Result.SampleSize,
		ConfidenceLevel:   report.Result.ConfidenceLevel,
		SignificanceLevel: report.Result.SignificanceLevel,
		Strength:          report.Result.Strength,
		IsSignificant:     report.Result.IsSignificant,
		InsufficientData:  report.Result.InsufficientData,
		Badge:             report.Badge,
		EffectSize: effectSizeResponse{
			EffectSize:         jsonFloat(report.EffectSize.EffectSize),
			AbsoluteEffectSize: jsonFloat(report.EffectSize.AbsoluteEffectSize),
			Interpretation:     report.EffectSize.Interpretation,
			SampleSize:         report.EffectSize.SampleSize,
			InsufficientData:   report.EffectSize.InsufficientData,
		},
	}
}

type tTestResponse struct {
	Statistic            *float64 `json:"statistic"`
	PValue               *float64 `json:"p_value"`
	IsSignificant        bool     `json:"is_significant"`
	Group1Mean           *float64 `json:"group1_mean"`
	Group2Mean           *float64 `json:"group2_mean"`
	Group1Size           int      `json:"group1_size"`
	Group2Size           int      `json:"group2_size"`
	EqualVarianceAssumed bool     `json:"equal_variance_assumed"`
	InsufficientData     bool     `json:"insufficient_data"`
}

type meanCIResponse struct {
	Mean             *float64 `json:"mean"`
	CILower          *float64 `json:"ci_lower"`
	CIUpper          *float64 `json:"ci_upper"`
	MarginOfError    *float64 `json:"margin_of_error"`
	SampleSize       int      `json:"sample_size"`
	ConfidenceLevel  float64  `json:"confidence_level"`
	InsufficientData bool     `json:"insufficient_data"`
}

type comparisonResponse struct {
	Column          string         `json:"column"`
	AQIThreshold    float64        `json:"aqi_threshold"`
	TTest           tTestResponse  `json:"t_test"`
	HighMean        meanCIResponse `json:"high_mean"`
	NormalMean      meanCIResponse `json:"normal_mean"`
	PercentIncrease float64        `json:"percent_increase"`
}

func toMeanCIResponse(result analysis.MeanCIResult) meanCIResponse {
	return meanCIResponse{
		Mean:             jsonFloat(result.Mean),
		CILower:          jsonFloat(result.CILower),
		CIUpper:          jsonFloat(result.CIUpper),
		MarginOfError:    jsonFloat(result.MarginOfError),
		SampleSize:       result.SampleSize,
		ConfidenceLevel:  result.ConfidenceLevel,
		InsufficientData: result.InsufficientData,
	}
}

func toComparisonResponse(report services.GroupComparisonReport) comparisonResponse {
	return comparisonResponse{
		Column:       report.Column,
		AQIThreshold: report.AQIThreshold,
		TTest: tTestResponse{
			Statistic:            jsonFloat(report.TTest.Statistic),
			PValue:               jsonFloat(report.TTest.PValue),
			IsSignificant:        report.TTest.IsSignificant,
			Group1Mean:           jsonFloat(report.TTest.Group1Mean),
			Group2Mean:           jsonFloat(report.TTest.Group2Mean),
			Group1Size:           report.TTest.Group1Size,
			Group2Size:           report.TTest.Group2Size,
			EqualVarianceAssumed: report.TTest.EqualVarianceAssumed,
			InsufficientData:     report.TTest.InsufficientData,
		},
		HighMean:        toMeanCIResponse(report.HighMean),
		NormalMean:      toMeanCIResponse(report.NormalMean),
		PercentIncrease: report.PercentIncrease,
	}
}

type rollingPointResponse struct {
	Date    time.Time `json:"date"`
	Value   *float64  `json:"value"`
	Average *float64  `json:"average"`
}

type trendResultResponse struct {
	Slope            *float64 `json:"slope"`
	Direction        string   `json:"direction"`
	SampleSize       int      `json:"sample_size"`
	InsufficientData bool     `json:"insufficient_data"`
}

type trendResponse struct {
	Column   string                          `json:"column"`
	Window   int                             `json:"window"`
	Rolling  []rollingPointResponse          `json:"rolling"`
	Seasonal map[string]analysis.SeasonStats `json:"seasonal"`
	Trend    trendResultResponse             `json:"trend"`
}

func toTrendResponse(summary analysis.TrendSummary) trendResponse {
	rolling := make([]rollingPointResponse, len(summary.Rolling))
	for i, p := range summary.Rolling {
		rolling[i] = rollingPointResponse{
			Date:    p.Date,
			Value:   jsonFloat(p.Value),
			Average: jsonFloat(p.Average),
		}
	}

	return trendResponse{
		Column:   summary.Column,
		Window:   summary.Window,
		Rolling:  rolling,
		Seasonal: summary.Seasonal,
		Trend: trendResultResponse{
			Slope:            jsonFloat(summary.Trend.Slope),
			Direction:        summary.Trend.Direction,
			SampleSize:       summary.Trend.SampleSize,
			InsufficientData: summary.Trend.InsufficientData,
		},
	}
}

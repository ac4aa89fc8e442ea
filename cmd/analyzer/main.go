package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"airhealth-platform/internal/assembly"
	"airhealth-platform/internal/services"
	"airhealth-platform/pkg/logging"
	"airhealth-platform/pkg/metrics"
)

func main() {
	dataDir := flag.String("data", "data", "Directory containing the source CSV files")
	xColumn := flag.String("x", "aqi", "First column for the correlation analysis")
	yColumn := flag.String("y", "respiratory_cases", "Second column for the correlation analysis")
	confidence := flag.Float64("confidence", 0.95, "Confidence level for intervals and significance")
	trendColumn := flag.String("trend", "", "Optional column for trend analysis")
	window := flag.Int("window", 7, "Rolling window size for trend analysis")
	withQuality := flag.Bool("quality", false, "Include a data quality report")
	flag.Parse()

	logger := logging.NewStructuredLogger("airhealth-analyzer", "1.0.0", logging.WarnLevel)
	metricsCollector := metrics.NewCollector("airhealth_analyzer")

	assembler := assembly.NewAssembler(assembly.NewCSVSource(*dataDir), logger, metricsCollector)
	svc := services.NewAnalysisService(assembler, logger, metricsCollector, *confidence, time.Minute)

	ctx := context.Background()
	if err := svc.LoadDataset(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load dataset: %v\n", err)
		os.Exit(1)
	}

	output := make(map[string]interface{})

	summary, err := svc.FilterSummary(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read dataset summary: %v\n", err)
		os.Exit(1)
	}
	output["records"] = summary.OriginalRecords

	correlation, err := svc.Correlation(ctx, *xColumn, *yColumn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Correlation analysis failed: %v\n", err)
		os.Exit(1)
	}
	output["correlation"] = map[string]interface{}{
		"x":                 correlation.X,
		"y":                 correlation.Y,
		"correlation":       sanitize(correlation.Result.Correlation),
		"p_value":           sanitize(correlation.Result.PValue),
		"ci_lower":          sanitize(correlation.Result.CILower),
		"ci_upper":          sanitize(correlation.Result.CIUpper),
		"sample_size":       correlation.Result.SampleSize,
		"strength":          correlation.Result.Strength,
		"is_significant":    correlation.Result.IsSignificant,
		"insufficient_data": correlation.Result.InsufficientData,
		"badge":             correlation.Badge.Badge,
		"effect_size":       correlation.EffectSize.Interpretation,
	}

	if *withQuality {
		report, err := svc.Quality(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Quality validation failed: %v\n", err)
			os.Exit(1)
		}
		output["quality"] = report
	}

	if *trendColumn != "" {
		trend, err := svc.Trend(ctx, *trendColumn, *window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Trend analysis failed: %v\n", err)
			os.Exit(1)
		}
		output["trend"] = map[string]interface{}{
			"column":    trend.Column,
			"window":    trend.Window,
			"direction": trend.Trend.Direction,
			"slope":     sanitize(trend.Trend.Slope),
			"seasonal":  trend.Seasonal,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode report: %v\n", err)
		os.Exit(1)
	}
}

// sanitize maps NaN to nil so the report stays valid JSON.
func sanitize(v float64) interface{} {
	if v != v {
		return nil
	}
	return v
}

package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Correlation strength thresholds on |r|.
const (
	strengthWeakMax     = 0.3
	strengthModerateMax = 0.7
)

// CorrelationResult holds a Pearson correlation with its significance test
// and confidence interval. Numeric fields are NaN when InsufficientData is
// set.
type CorrelationResult struct {
	Correlation       float64 `json:"correlation"`
	PValue            float64 `json:"p_value"`
	CILower           float64 `json:"ci_lower"`
	CIUpper           float64 `json:"ci_upper"`
	SampleSize        int     `json:"sample_size"`
	ConfidenceLevel   float64 `json:"confidence_level"`
	SignificanceLevel float64 `json:"significance_level"`
	Strength          string  `json:"strength"`
	IsSignificant     bool    `json:"is_significant"`
	InsufficientData  bool    `json:"insufficient_data"`
}

// CorrelationWithSignificance computes the Pearson correlation between x and
// y over pairwise-complete rows, with a two-sided t-test p-value and a
// Fisher z confidence interval at the given confidence level.
//
// Fewer than 3 complete pairs yields an InsufficientData result with NaN
// statistics rather than an error.
func CorrelationWithSignificance(x, y []float64, confidenceLevel float64) CorrelationResult {
	alpha := 1 - confidenceLevel
	xs, ys := pairwiseComplete(x, y)
	n := len(xs)

	result := CorrelationResult{
		Correlation:       math.NaN(),
		PValue:            math.NaN(),
		CILower:           math.NaN(),
		CIUpper:           math.NaN(),
		SampleSize:        n,
		ConfidenceLevel:   confidenceLevel,
		SignificanceLevel: alpha,
	}

	if n < 3 {
		result.InsufficientData = true
		return result
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		// Zero variance in at least one variable.
		result.InsufficientData = true
		return result
	}

	result.Correlation = r
	result.PValue = correlationPValue(r, n)
	result.CILower, result.CIUpper = fisherInterval(r, n, alpha)
	result.Strength = correlationStrength(r)
	result.IsSignificant = result.PValue < alpha
	return result
}

// correlationPValue returns the two-sided p-value for the null hypothesis
// r = 0, using the t transform with n-2 degrees of freedom.
func correlationPValue(r float64, n int) float64 {
	denom := 1 - r*r
	if denom <= 0 {
		// Perfect correlation; the t statistic diverges.
		return 0
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	return math.Min(p, 1)
}

// fisherInterval computes a confidence interval for the population
// correlation via the Fisher z transform. Near-perfect correlations make
// the transform numerically unstable, so |r| >= 0.999 falls back to a
// plain proportional band around r.
func fisherInterval(r float64, n int, alpha float64) (lower, upper float64) {
	if math.Abs(r) >= 0.999 {
		lo := r * 0.95
		hi := r * 1.05
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi
	}

	zr := 0.5 * math.Log((1+r)/(1-r))
	se := 1 / math.Sqrt(float64(n-3))
	zcrit := distuv.UnitNormal.Quantile(1 - alpha/2)

	return math.Tanh(zr - zcrit*se), math.Tanh(zr + zcrit*se)
}

// correlationStrength buckets |r| into Weak, Moderate, or Strong.
func correlationStrength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs < strengthWeakMax:
		return "Weak"
	case abs < strengthModerateMax:
		return "Moderate"
	default:
		return "Strong"
	}
}

// Badge is a display annotation for a p-value.
type Badge struct {
	Badge       string `json:"badge"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// SignificanceBadge maps a p-value to its display badge given the
// significance threshold alpha.
func SignificanceBadge(pValue, alpha float64) Badge {
	switch {
	case math.IsNaN(pValue):
		return Badge{Badge: "N/A", Color: "gray", Description: "Not available"}
	case pValue < 0.001:
		return Badge{Badge: "***", Color: "darkgreen", Description: "Highly significant (p < 0.001)"}
	case pValue < 0.01:
		return Badge{Badge: "**", Color: "green", Description: "Very significant (p < 0.01)"}
	case pValue < alpha:
		return Badge{Badge: "*", Color: "lightgreen", Description: fmt.Sprintf("Significant (p < %g)", alpha)}
	default:
		return Badge{Badge: "ns", Color: "red", Description: fmt.Sprintf("Not significant (p >= %g)", alpha)}
	}
}

// EffectSizeResult interprets a correlation coefficient as an effect size.
type EffectSizeResult struct {
	EffectSize         float64 `json:"effect_size"`
	AbsoluteEffectSize float64 `json:"absolute_effect_size"`
	Interpretation     string  `json:"interpretation"`
	SampleSize         int     `json:"sample_size"`
	InsufficientData   bool    `json:"insufficient_data"`
}

// EffectSize computes the correlation-based effect size between x and y over
// pairwise-complete rows and buckets its magnitude using Cohen's
// conventions. The interpretation ladder is intentionally coarser than the
// correlation strength ladder.
func EffectSize(x, y []float64) EffectSizeResult {
	xs, ys := pairwiseComplete(x, y)
	n := len(xs)

	if n < 2 {
		return EffectSizeResult{
			EffectSize:         math.NaN(),
			AbsoluteEffectSize: math.NaN(),
			Interpretation:     "Insufficient data",
			SampleSize:         n,
			InsufficientData:   true,
		}
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return EffectSizeResult{
			EffectSize:         math.NaN(),
			AbsoluteEffectSize: math.NaN(),
			Interpretation:     "Insufficient data",
			SampleSize:         n,
			InsufficientData:   true,
		}
	}

	abs := math.Abs(r)
	return EffectSizeResult{
		EffectSize:         r,
		AbsoluteEffectSize: abs,
		Interpretation:     effectSizeInterpretation(abs),
		SampleSize:         n,
	}
}

func effectSizeInterpretation(abs float64) string {
	switch {
	case abs < 0.1:
		return "Negligible"
	case abs < 0.3:
		return "Small"
	case abs < 0.5:
		return "Medium"
	default:
		return "Large"
	}
}

// TTestResult holds the outcome of an independent two-sample t-test.
type TTestResult struct {
	Statistic            float64 `json:"statistic"`
	PValue               float64 `json:"p_value"`
	IsSignificant        bool    `json:"is_significant"`
	Group1Mean           float64 `json:"group1_mean"`
	Group2Mean           float64 `json:"group2_mean"`
	Group1Size           int     `json:"group1_size"`
	Group2Size           int     `json:"group2_size"`
	EqualVarianceAssumed bool    `json:"equal_variance_assumed"`
	InsufficientData     bool    `json:"insufficient_data"`
}

// TTestIndependent runs an independent two-sample t-test between group1 and
// group2 after dropping NaN values. With equalVariance it uses the pooled
// variance estimate; otherwise Welch's test with the Welch-Satterthwaite
// degrees of freedom. Either group having fewer than 2 valid values yields
// an InsufficientData result.
func TTestIndependent(group1, group2 []float64, equalVariance bool) TTestResult {
	g1 := dropNaN(group1)
	g2 := dropNaN(group2)

	result := TTestResult{
		Statistic:            math.NaN(),
		PValue:               math.NaN(),
		Group1Mean:           math.NaN(),
		Group2Mean:           math.NaN(),
		Group1Size:           len(g1),
		Group2Size:           len(g2),
		EqualVarianceAssumed: equalVariance,
	}

	if len(g1) > 0 {
		result.Group1Mean = stat.Mean(g1, nil)
	}
	if len(g2) > 0 {
		result.Group2Mean = stat.Mean(g2, nil)
	}

	if len(g1) < 2 || len(g2) < 2 {
		result.InsufficientData = true
		return result
	}

	n1 := float64(len(g1))
	n2 := float64(len(g2))
	v1 := stat.Variance(g1, nil)
	v2 := stat.Variance(g2, nil)

	var se, df float64
	if equalVariance {
		df = n1 + n2 - 2
		pooled := ((n1-1)*v1 + (n2-1)*v2) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	} else {
		a := v1 / n1
		b := v2 / n2
		se = math.Sqrt(a + b)
		df = (a + b) * (a + b) / (a*a/(n1-1) + b*b/(n2-1))
	}

	if se == 0 || math.IsNaN(df) || df <= 0 {
		// Both groups constant; the test statistic is undefined.
		return result
	}

	t := (result.Group1Mean - result.Group2Mean) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := math.Min(2*dist.Survival(math.Abs(t)), 1)

	result.Statistic = t
	result.PValue = p
	result.IsSignificant = p < 0.05
	return result
}

// MeanCIResult holds a sample mean with its Student-t confidence interval.
type MeanCIResult struct {
	Mean             float64 `json:"mean"`
	CILower          float64 `json:"ci_lower"`
	CIUpper          float64 `json:"ci_upper"`
	MarginOfError    float64 `json:"margin_of_error"`
	SampleSize       int     `json:"sample_size"`
	ConfidenceLevel  float64 `json:"confidence_level"`
	InsufficientData bool    `json:"insufficient_data"`
}

// ConfidenceIntervalOfMean computes the mean of values (NaN dropped) with a
// Student-t confidence interval at the given confidence level. Fewer than 2
// valid values yields an InsufficientData result.
func ConfidenceIntervalOfMean(values []float64, confidenceLevel float64) MeanCIResult {
	clean := dropNaN(values)
	n := len(clean)

	result := MeanCIResult{
		Mean:            math.NaN(),
		CILower:         math.NaN(),
		CIUpper:         math.NaN(),
		MarginOfError:   math.NaN(),
		SampleSize:      n,
		ConfidenceLevel: confidenceLevel,
	}

	if n > 0 {
		result.Mean = stat.Mean(clean, nil)
	}
	if n < 2 {
		result.InsufficientData = true
		return result
	}

	alpha := 1 - confidenceLevel
	sd := stat.StdDev(clean, nil)
	se := sd / math.Sqrt(float64(n))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	margin := dist.Quantile(1-alpha/2) * se

	result.CILower = result.Mean - margin
	result.CIUpper = result.Mean + margin
	result.MarginOfError = margin
	return result
}

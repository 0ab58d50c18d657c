package fattail

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ScaleConfig controls the conditional-exceedance scan.
type ScaleConfig struct {
	Factor         float64 // k: compares P(X > k·x) with P(X > x), must be > 1
	LowPercentile  float64 // First threshold, percentile of the sample (0, 100)
	HighPercentile float64 // Last threshold, percentile of the sample (0, 100)
	Steps          int     // Number of log-spaced thresholds
	MinSupport     int     // Skip thresholds with fewer exceedances than this
}

// DefaultScaleConfig scans "probability of doubling" from P10 to P99.
func DefaultScaleConfig() ScaleConfig {
	return ScaleConfig{
		Factor:         2.0,
		LowPercentile:  10,
		HighPercentile: 99,
		Steps:          50,
		MinSupport:     10,
	}
}

// Validate checks the scan parameters.
func (c ScaleConfig) Validate() error {
	switch {
	case !(c.Factor > 1):
		return fmt.Errorf("%w: scale factor %v must be > 1", ErrInvalidConfiguration, c.Factor)
	case !(c.LowPercentile > 0 && c.LowPercentile < 100):
		return fmt.Errorf("%w: low percentile %v outside (0, 100)", ErrInvalidConfiguration, c.LowPercentile)
	case !(c.HighPercentile > 0 && c.HighPercentile < 100):
		return fmt.Errorf("%w: high percentile %v outside (0, 100)", ErrInvalidConfiguration, c.HighPercentile)
	case c.LowPercentile >= c.HighPercentile:
		return fmt.Errorf("%w: low percentile %v must be below high percentile %v",
			ErrInvalidConfiguration, c.LowPercentile, c.HighPercentile)
	case c.Steps < 1:
		return fmt.Errorf("%w: steps %d must be ≥ 1", ErrInvalidConfiguration, c.Steps)
	case c.MinSupport < 1:
		return fmt.Errorf("%w: minimum support %d must be ≥ 1", ErrInvalidConfiguration, c.MinSupport)
	}
	return nil
}

// ExceedancePoint is P(X > k·x | X > x) estimated at one threshold x.
type ExceedancePoint struct {
	Threshold float64 `json:"threshold"`
	Ratio     float64 `json:"ratio"`
	Support   int     `json:"support"` // count of values > Threshold
}

// ConditionalExceedanceProfile lists exceedance ratios in ascending threshold order.
type ConditionalExceedanceProfile []ExceedancePoint

// Ratios returns the ratio column of the profile.
func (p ConditionalExceedanceProfile) Ratios() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Ratio
	}
	return out
}

// VerifyScaleInvariance computes conditional exceedance ratios
//
//	ratio(x) = #{X > k·x} / #{X > x}
//
// at cfg.Steps thresholds log-spaced between the low and high percentiles.
//
// SCALE INVARIANCE:
//
// For a power law, (k·x)^(-α) / x^(-α) = k^(-α) regardless of x: the chance
// of doubling is the same at every size, there is no characteristic scale.
// A distribution with a genuine scale (Gaussian) shows ratios that collapse
// toward zero as x grows.
//
// Thresholds with fewer than cfg.MinSupport exceedances are skipped. The low
// percentile quantile must be positive so the thresholds can be log-spaced.
func VerifyScaleInvariance(s Sample, cfg ScaleConfig) (ConditionalExceedanceProfile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, ErrEmptySample
	}

	sorted := s.Sorted()
	low := quantileSorted(sorted, cfg.LowPercentile/100)
	high := quantileSorted(sorted, cfg.HighPercentile/100)
	if !(low > 0) {
		return nil, fmt.Errorf("%w: P%v = %.6g is not positive, cannot log-space thresholds",
			ErrInvalidConfiguration, cfg.LowPercentile, low)
	}

	thresholds := make([]float64, cfg.Steps)
	if cfg.Steps == 1 || low == high {
		for i := range thresholds {
			thresholds[i] = low
		}
	} else {
		floats.LogSpan(thresholds, low, high)
	}

	profile := make(ConditionalExceedanceProfile, 0, len(thresholds))
	for i, x := range thresholds {
		// Duplicate thresholds (degenerate quantiles) would break strict ordering.
		if i > 0 && !(x > thresholds[i-1]) {
			continue
		}

		countX := countAbove(sorted, x)
		if countX < cfg.MinSupport {
			continue
		}
		countKX := countAbove(sorted, cfg.Factor*x)

		profile = append(profile, ExceedancePoint{
			Threshold: x,
			Ratio:     float64(countKX) / float64(countX),
			Support:   countX,
		})
	}

	return profile, nil
}

// PowerLawRatio returns k^(-α), the conditional exceedance ratio an exact
// power law with exponent α produces at every threshold.
func PowerLawRatio(k, alpha float64) float64 {
	return math.Pow(k, -alpha)
}

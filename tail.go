package fattail

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultTailQuantile selects the top 10% of a sample as its tail.
const DefaultTailQuantile = 0.9

// TailEstimate is the result of the log-log tail regression.
type TailEstimate struct {
	Alpha     float64 `json:"alpha"`      // -slope of ln S(x) against ln x
	TailCount int     `json:"tail_count"` // values strictly above Threshold
	Threshold float64 `json:"threshold"`  // tail-quantile quantile of the sample
	RSquared  float64 `json:"r_squared"`  // goodness of the straight-line fit

	// Degenerate is set when the regression slope is non-negative, i.e. the
	// "tail" does not decay. Alpha is still reported, uncorrected.
	Degenerate bool `json:"degenerate"`
}

// Trustworthy reports whether downstream consumers should believe Alpha.
//
// The simplified estimator is only meaningful for a decaying fit with α ≥ 1:
//   - Degenerate fit: non-positive α, no tail at all
//   - α < 1: infinite mean, regression is dominated by a handful of points
func (e TailEstimate) Trustworthy() bool {
	return !e.Degenerate && e.Alpha >= 1
}

// FiniteVariance reports whether the estimated tail has a finite second moment (α > 2).
func (e TailEstimate) FiniteVariance() bool {
	return e.Alpha > 2
}

// FiniteMean reports whether the estimated tail has a finite first moment (α > 1).
func (e TailEstimate) FiniteMean() bool {
	return e.Alpha > 1
}

// EstimateTail estimates the power-law tail exponent α of a sample.
//
// Algorithm (intentionally simple; not a Hill estimator):
//
//  1. threshold = tailQuantile-quantile of the sample
//  2. tail = values strictly greater than threshold, m = len(tail)
//  3. survival probabilities recomputed within the tail: 1 - (i-1)/m
//  4. drop the last point (its log survival is the noisiest and the
//     following point would be ln 0)
//  5. OLS fit ln S = a + b·ln x over the remaining m-1 points
//  6. α = -b
//
// For a Pareto tail P(X > x) = (x/x_m)^(-α) the conditional tail above any
// threshold is Pareto with the same α, so the fitted line has slope -α.
//
// Errors:
//   - ErrInvalidConfiguration: tailQuantile outside (0, 1)
//   - ErrEmptySample: no data
//   - ErrInsufficientTailData: fewer than 3 tail values, or all tail values equal
func EstimateTail(s Sample, tailQuantile float64) (TailEstimate, error) {
	if math.IsNaN(tailQuantile) || tailQuantile <= 0 || tailQuantile >= 1 {
		return TailEstimate{}, fmt.Errorf("%w: tail quantile %v outside (0, 1)",
			ErrInvalidConfiguration, tailQuantile)
	}
	if len(s) == 0 {
		return TailEstimate{}, ErrEmptySample
	}

	sorted := s.Sorted()
	threshold := quantileSorted(sorted, tailQuantile)

	// sorted is ascending, so the tail is a suffix.
	m := countAbove(sorted, threshold)
	tail := sorted[len(sorted)-m:]

	if m < 2 {
		return TailEstimate{}, fmt.Errorf("%w: %d values above threshold %.6g (need at least 2)",
			ErrInsufficientTailData, m, threshold)
	}
	// Dropping the last point must still leave a line to fit.
	if m < 3 {
		return TailEstimate{}, fmt.Errorf("%w: %d values above threshold %.6g leave %d point after dropping the last (need at least 2)",
			ErrInsufficientTailData, m, threshold, m-1)
	}

	if tail[0] <= 0 {
		return TailEstimate{}, fmt.Errorf("%w: tail contains non-positive value %.6g (filter with Sample.Positive)",
			ErrInvalidConfiguration, tail[0])
	}

	curve := survivalSorted(tail)[:m-1]

	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	for i, p := range curve {
		xs[i] = math.Log(p.Value)
		ys[i] = math.Log(p.Probability)
	}

	if xs[0] == xs[len(xs)-1] {
		return TailEstimate{}, fmt.Errorf("%w: tail values have no spread (all %.6g)",
			ErrInsufficientTailData, curve[0].Value)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	return TailEstimate{
		Alpha:      -slope,
		TailCount:  m,
		Threshold:  threshold,
		RSquared:   stat.RSquared(xs, ys, nil, intercept, slope),
		Degenerate: slope >= 0,
	}, nil
}

package fattail

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DispersionTrace holds running dispersion statistics of a time-ordered sample.
//
// MAD[i-1] and Std[i-1] are computed over the first i samples, always
// relative to the full-sample mean (not a recursively updated one):
//
//	MAD[i] = (1/i) Σ |x_j - μ|
//	Std[i] = sqrt((1/i) Σ (x_j - μ)²)
type DispersionTrace struct {
	Mean float64   `json:"mean"` // μ, the full-sample mean
	MAD  []float64 `json:"running_mad"`
	Std  []float64 `json:"running_std"`
}

// Len returns the number of prefixes in the trace.
func (d DispersionTrace) Len() int {
	return len(d.MAD)
}

// RunningDispersion computes the running MAD and running standard deviation.
//
// THE STD TRAP:
//
// With tail exponent α ≥ 2 both sequences settle. With α < 2 the second
// moment is infinite: every large draw kicks Std upward and it never
// settles, while MAD (first moment, finite for α > 1) converges. Std squares
// the outliers, MAD does not.
func RunningDispersion(s Sample) (DispersionTrace, error) {
	if len(s) == 0 {
		return DispersionTrace{}, ErrEmptySample
	}

	mean := stat.Mean(s, nil)

	absDev := make([]float64, len(s))
	sqDev := make([]float64, len(s))
	for i, x := range s {
		d := x - mean
		absDev[i] = math.Abs(d)
		sqDev[i] = d * d
	}

	mad := floats.CumSum(make([]float64, len(s)), absDev)
	std := floats.CumSum(make([]float64, len(s)), sqDev)
	for i := range mad {
		n := float64(i + 1)
		mad[i] /= n
		std[i] = math.Sqrt(std[i] / n)
	}

	return DispersionTrace{Mean: mean, MAD: mad, Std: std}, nil
}

// MaxToSumRatio returns, for each prefix i, max(x_1..x_i) / Σ x_1..x_i.
//
// For non-negative data with a finite mean the ratio decays to zero: no
// single draw matters. Under a fat tail it keeps jumping back up whenever a
// new record arrives, because one observation can carry a sizeable share of
// the total. A prefix whose sum is zero yields 0.
//
// Intended for non-negative data; take Sample.Abs of signed data first.
func MaxToSumRatio(s Sample) ([]float64, error) {
	if len(s) == 0 {
		return nil, ErrEmptySample
	}

	ratios := make([]float64, len(s))
	runningMax := math.Inf(-1)
	var sum float64
	for i, x := range s {
		sum += x
		runningMax = math.Max(runningMax, x)
		if sum == 0 {
			ratios[i] = 0
			continue
		}
		ratios[i] = runningMax / sum
	}
	return ratios, nil
}

// RollingVolatility returns the sample standard deviation (n-1 denominator)
// of every full window of the given size. Entry j covers s[j : j+window].
//
// THE MASQUERADE:
//
// An i.i.d. fat-tailed process with constant parameters produces rolling
// volatility that looks like distinct calm and turbulent "regimes". Nothing
// changed in the process; one large draw inflates every window it sits in.
func RollingVolatility(s Sample, window int) ([]float64, error) {
	if len(s) == 0 {
		return nil, ErrEmptySample
	}
	if window < 2 || window > len(s) {
		return nil, fmt.Errorf("%w: window %d outside [2, %d]", ErrInvalidConfiguration, window, len(s))
	}

	out := make([]float64, len(s)-window+1)
	for j := range out {
		out[j] = stat.StdDev(s[j:j+window], nil)
	}
	return out, nil
}

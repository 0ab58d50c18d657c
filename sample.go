package fattail

import (
	"fmt"
	"math"
	"sort"
)

// Sample is an ordered, finite sequence of draws (insertion order = draw order).
//
// No function in this package mutates a Sample. Components that need sorted
// data sort a copy, so time-ordered consumers (RunningDispersion, MaxToSumRatio,
// RollingVolatility) always see the original order.
type Sample []float64

// Sorted returns an ascending copy of the sample.
func (s Sample) Sorted() []float64 {
	sorted := make([]float64, len(s))
	copy(sorted, s)
	sort.Float64s(sorted)
	return sorted
}

// Positive returns a copy holding only the strictly positive values, in order.
//
// Log-log consumers (survival plots, tail regression, Zipf) need this filter;
// taking it is the caller's responsibility.
func (s Sample) Positive() Sample {
	out := make(Sample, 0, len(s))
	for _, x := range s {
		if x > 0 {
			out = append(out, x)
		}
	}
	return out
}

// Abs returns a copy with every value replaced by its absolute value.
func (s Sample) Abs() Sample {
	out := make(Sample, len(s))
	for i, x := range s {
		out[i] = math.Abs(x)
	}
	return out
}

// Quantile returns the q-th quantile (0 ≤ q ≤ 1) of the sample using linear
// interpolation between order statistics:
//
//	h = (n-1)·q,  Q = x[⌊h⌋] + (h-⌊h⌋)·(x[⌊h⌋+1] - x[⌊h⌋])
//
// This is the Hyndman-Fan type 7 definition (numpy's default). The endpoints
// are allowed: q = 0 is the minimum and q = 1 the maximum. Tail thresholds
// must lie strictly inside, see EstimateTail.
func Quantile(s Sample, q float64) (float64, error) {
	if len(s) == 0 {
		return 0, ErrEmptySample
	}
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("%w: quantile %v outside [0, 1]", ErrInvalidConfiguration, q)
	}
	return quantileSorted(s.Sorted(), q), nil
}

// Percentile is Quantile with p expressed in percent (0 ≤ p ≤ 100, endpoints
// giving the minimum and maximum).
func Percentile(s Sample, p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: percentile %v outside [0, 100]", ErrInvalidConfiguration, p)
	}
	return Quantile(s, p/100)
}

// quantileSorted evaluates the type 7 quantile over an ascending, non-empty slice.
func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	h := float64(n-1) * q
	lower := int(math.Floor(h))
	if lower >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

// countAbove returns how many values of an ascending slice are strictly greater than x.
func countAbove(sorted []float64, x float64) int {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] > x })
	return len(sorted) - idx
}

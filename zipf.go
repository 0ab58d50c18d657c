package fattail

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RankPoint is one entry of a rank-size (Zipf) curve.
type RankPoint struct {
	Rank  int     `json:"rank"` // 1 = largest
	Value float64 `json:"value"`
}

// RankSize sorts the sample descending and pairs each value with its rank.
//
// The rank-size plot is the survival curve with its axes swapped: for a
// Pareto tail, value ∝ rank^(-1/α), a straight line on log-log axes.
func RankSize(s Sample) ([]RankPoint, error) {
	if len(s) == 0 {
		return nil, ErrEmptySample
	}

	sorted := s.Sorted()
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	curve := make([]RankPoint, len(sorted))
	for i, v := range sorted {
		curve[i] = RankPoint{Rank: i + 1, Value: v}
	}
	return curve, nil
}

// ZipfSlope fits ln(value) = a + b·ln(rank) over the positive values of the
// rank-size curve and returns b. For a Pareto sample b ≈ -1/α.
func ZipfSlope(s Sample) (float64, error) {
	curve, err := RankSize(s.Positive())
	if err != nil {
		return 0, err
	}
	if len(curve) < 2 {
		return 0, fmt.Errorf("%w: %d positive values, need at least 2", ErrInsufficientTailData, len(curve))
	}

	xs := make([]float64, len(curve))
	ys := make([]float64, len(curve))
	for i, p := range curve {
		xs[i] = math.Log(float64(p.Rank))
		ys[i] = math.Log(p.Value)
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope, nil
}

package fattail

import (
	"errors"
	"math"
	"sort"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// relativeRange returns (max - min) / mean of a window.
func relativeRange(w []float64) float64 {
	return (floats.Max(w) - floats.Min(w)) / stat.Mean(w, nil)
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return quantileSorted(sorted, 0.5)
}

// TestRunningDispersion_Exact checks the fixed full-sample mean formula.
func TestRunningDispersion_Exact(t *testing.T) {
	trace, err := RunningDispersion(Sample{1, 2, 3})
	if err != nil {
		t.Fatalf("RunningDispersion failed: %v", err)
	}

	// μ = 2 for every prefix, not the prefix mean
	wantMAD := []float64{1, 0.5, 2.0 / 3.0}
	wantStd := []float64{1, math.Sqrt(0.5), math.Sqrt(2.0 / 3.0)}

	if trace.Mean != 2 {
		t.Errorf("Mean = %v, want 2", trace.Mean)
	}
	if trace.Len() != 3 || len(trace.Std) != 3 {
		t.Fatalf("Expected 3 entries, got MAD %d, Std %d", len(trace.MAD), len(trace.Std))
	}
	for i := range wantMAD {
		if math.Abs(trace.MAD[i]-wantMAD[i]) > 1e-12 {
			t.Errorf("MAD[%d] = %v, want %v", i, trace.MAD[i], wantMAD[i])
		}
		if math.Abs(trace.Std[i]-wantStd[i]) > 1e-12 {
			t.Errorf("Std[%d] = %v, want %v", i, trace.Std[i], wantStd[i])
		}
	}

	if _, err := RunningDispersion(nil); !errors.Is(err, ErrEmptySample) {
		t.Errorf("Expected ErrEmptySample, got %v", err)
	}

	t.Logf("✓ MAD %v, Std %v", trace.MAD, trace.Std)
}

// TestRunningDispersion_GaussianSettles verifies both statistics converge
// for a finite-variance sample.
func TestRunningDispersion_GaussianSettles(t *testing.T) {
	s := mustDraw(t, FamilyNormal, nil, 10_000, 42)

	trace, err := RunningDispersion(s)
	if err != nil {
		t.Fatalf("RunningDispersion failed: %v", err)
	}

	n := trace.Len()
	std := trace.Std[n-1]
	mad := trace.MAD[n-1]

	if std < 0.9 || std > 1.1 {
		t.Errorf("Running std %.4f outside 1.0 ± 0.1", std)
	}
	// E|X - μ| = sqrt(2/π) for N(0, 1)
	if want := math.Sqrt(2 / math.Pi); math.Abs(mad-want) > 0.05 {
		t.Errorf("Running MAD %.4f, want %.4f ± 0.05", mad, want)
	}

	tail := n / 10
	if r := relativeRange(trace.Std[n-tail:]); r > 0.1 {
		t.Errorf("Gaussian std still moving over the last 10%%: relative range %.4f", r)
	}

	t.Logf("✓ Gaussian: std %.4f, MAD %.4f", std, mad)
}

// TestRunningDispersion_ParetoStdNeverSettles is the STD trap: with α = 1.5
// the running MAD settles while the running std keeps jumping.
//
// A single path can go quiet over its last 10% (no record in that stretch),
// so the comparison is made per seed and summarized by the median.
func TestRunningDispersion_ParetoStdNeverSettles(t *testing.T) {
	const (
		n     = 100_000
		seeds = 9
	)

	var stdRanges, madRanges, ratios []float64
	for seed := uint64(1); seed <= seeds; seed++ {
		s := mustDraw(t, FamilyPareto, map[string]float64{"alpha": 1.5}, n, seed)

		trace, err := RunningDispersion(s)
		if err != nil {
			t.Fatalf("RunningDispersion failed: %v", err)
		}

		window := n / 10
		stdRange := relativeRange(trace.Std[n-window:])
		madRange := relativeRange(trace.MAD[n-window:])

		stdRanges = append(stdRanges, stdRange)
		madRanges = append(madRanges, madRange)
		ratios = append(ratios, stdRange/madRange)
	}

	if m := median(madRanges); m >= 0.1 {
		t.Errorf("MAD did not settle: median relative range %.4f over the last 10%%", m)
	}
	if m := median(ratios); m < 2 {
		t.Errorf("Std not more volatile than MAD: median range ratio %.2f", m)
	}

	t.Logf("✓ α=1.5: median std range %.4f vs MAD range %.4f (ratio %.1f×)",
		median(stdRanges), median(madRanges), median(ratios))
}

// TestMaxToSumRatio_Exact checks the running max over running sum.
func TestMaxToSumRatio_Exact(t *testing.T) {
	got, err := MaxToSumRatio(Sample{1, 3, 2})
	if err != nil {
		t.Fatalf("MaxToSumRatio failed: %v", err)
	}

	want := []float64{1, 0.75, 0.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("ratio[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	zeros, err := MaxToSumRatio(Sample{0, 0, 4})
	if err != nil {
		t.Fatalf("MaxToSumRatio failed: %v", err)
	}
	if zeros[0] != 0 || zeros[1] != 0 || zeros[2] != 1 {
		t.Errorf("Zero-sum prefixes should yield 0, got %v", zeros)
	}

	if _, err := MaxToSumRatio(nil); !errors.Is(err, ErrEmptySample) {
		t.Errorf("Expected ErrEmptySample, got %v", err)
	}
}

// TestMaxToSumRatio_FatVsThin verifies one fat-tailed draw keeps a sizeable
// share of the total while the Gaussian share vanishes.
func TestMaxToSumRatio_FatVsThin(t *testing.T) {
	const n = 10_000

	pareto, err := MaxToSumRatio(mustDraw(t, FamilyPareto, map[string]float64{"alpha": 1.16}, n, 42))
	if err != nil {
		t.Fatalf("MaxToSumRatio failed: %v", err)
	}
	gaussian, err := MaxToSumRatio(mustDraw(t, FamilyHalfNormal, nil, n, 42))
	if err != nil {
		t.Fatalf("MaxToSumRatio failed: %v", err)
	}

	fat, thin := pareto[n-1], gaussian[n-1]
	if fat <= 5*thin {
		t.Errorf("Pareto max/sum %.6f not well above Gaussian %.6f", fat, thin)
	}
	if thin > 0.01 {
		t.Errorf("Gaussian max/sum should vanish, got %.6f", thin)
	}

	t.Logf("✓ max/sum at n=%d: Pareto(1.16) %.4f, |N(0,1)| %.6f", n, fat, thin)
}

// TestRollingVolatility_Exact checks window alignment and the n-1 denominator.
func TestRollingVolatility_Exact(t *testing.T) {
	got, err := RollingVolatility(Sample{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("RollingVolatility failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(got))
	}
	for i, v := range got {
		if math.Abs(v-math.Sqrt(0.5)) > 1e-12 {
			t.Errorf("window %d: %v, want %v", i, v, math.Sqrt(0.5))
		}
	}

	full, err := RollingVolatility(Sample{1, 2, 3, 4}, 4)
	if err != nil {
		t.Fatalf("RollingVolatility failed: %v", err)
	}
	if len(full) != 1 || math.Abs(full[0]-math.Sqrt(5.0/3.0)) > 1e-12 {
		t.Errorf("Full window: %v, want [%v]", full, math.Sqrt(5.0/3.0))
	}

	for _, window := range []int{0, 1, 5} {
		if _, err := RollingVolatility(Sample{1, 2, 3, 4}, window); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("window %d: expected ErrInvalidConfiguration, got %v", window, err)
		}
	}
	if _, err := RollingVolatility(nil, 2); !errors.Is(err, ErrEmptySample) {
		t.Errorf("Expected ErrEmptySample, got %v", err)
	}
}

// TestRollingVolatility_FakeRegimes verifies an i.i.d. fat-tailed series
// produces volatility "regimes" that a Gaussian series does not.
func TestRollingVolatility_FakeRegimes(t *testing.T) {
	const (
		n      = 2000
		window = 50
	)

	fat, err := RollingVolatility(mustDraw(t, FamilySignedPareto, nil, n, 42), window)
	if err != nil {
		t.Fatalf("RollingVolatility failed: %v", err)
	}
	thin, err := RollingVolatility(mustDraw(t, FamilyNormal, nil, n, 42), window)
	if err != nil {
		t.Fatalf("RollingVolatility failed: %v", err)
	}

	fatSwing := floats.Max(fat) / floats.Min(fat)
	thinSwing := floats.Max(thin) / floats.Min(thin)

	if fatSwing <= 3 {
		t.Errorf("Signed Pareto volatility swing %.2f×, expected > 3×", fatSwing)
	}
	if thinSwing >= 3 {
		t.Errorf("Gaussian volatility swing %.2f×, expected < 3×", thinSwing)
	}

	t.Logf("✓ Rolling volatility swing: signed Pareto %.1f×, Gaussian %.2f×", fatSwing, thinSwing)
}

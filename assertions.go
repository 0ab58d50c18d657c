package fattail

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

// AssertionConfig contains thresholds for tail properties.
type AssertionConfig struct {
	// Tail quantile handed to EstimateTail
	TailQuantile float64

	// α below this counts as fat-tailed (infinite variance)
	FatTailAlpha float64

	// Exceedance ratio at the highest threshold below this counts as thin-tailed
	ThinTailMaxRatio float64

	// Scale invariance: spread of ratios across thresholds
	MaxRatioStdDev float64

	// Scale invariance: |mean ratio - k^(-α)|
	RatioTolerance float64

	// Allowed upward noise between consecutive ratios of a thin tail
	MonotoneSlack float64
}

// DefaultAssertionConfig returns conservative thresholds.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		TailQuantile:     DefaultTailQuantile,
		FatTailAlpha:     2.0,  // α < 2: infinite variance
		ThinTailMaxRatio: 0.1,  // Doubling is rare far out in a thin tail
		MaxRatioStdDev:   0.05, // Ratios flat across thresholds
		RatioTolerance:   0.05, // Mean ratio close to k^(-α)
		MonotoneSlack:    0.02, // Sampling noise between neighbouring thresholds
	}
}

// AssertAlphaWithin verifies the estimated tail exponent is within tol of want.
func AssertAlphaWithin(t *testing.T, s Sample, want, tol float64, cfg AssertionConfig) TailEstimate {
	t.Helper()

	est, err := EstimateTail(s, cfg.TailQuantile)
	if err != nil {
		t.Fatalf("Failed to estimate tail: %v", err)
	}

	if math.Abs(est.Alpha-want) > tol {
		t.Errorf("Tail exponent off: α = %.4f, want %.4f ± %.4f (tail count %d, threshold %.4g)",
			est.Alpha, want, tol, est.TailCount, est.Threshold)
	}

	t.Logf("✓ Tail exponent: α = %.4f (want %.4f ± %.4f, R² = %.4f)", est.Alpha, want, tol, est.RSquared)
	return est
}

// AssertFatTail verifies the sample's tail has infinite variance (α < FatTailAlpha).
//
// Mathematical property:
//
//	E[X²] = ∞ when P(X > x) ~ x^(-α), α < 2
func AssertFatTail(t *testing.T, s Sample, cfg AssertionConfig) TailEstimate {
	t.Helper()

	est, err := EstimateTail(s, cfg.TailQuantile)
	if err != nil {
		t.Fatalf("Failed to estimate tail: %v", err)
	}

	if est.Degenerate {
		t.Errorf("Degenerate tail fit: slope is non-negative (α = %.4f)", est.Alpha)
	}

	if est.Alpha >= cfg.FatTailAlpha {
		t.Errorf("Tail not fat: α = %.4f (fat below %.4f)\n"+
			"Variance is finite; standard deviation is a usable measure.",
			est.Alpha, cfg.FatTailAlpha)
	}

	t.Logf("✓ Fat tail: α = %.4f < %.4f (regime %s)", est.Alpha, cfg.FatTailAlpha, ClassifyTail(est))
	return est
}

// AssertThinTail verifies the sample has a characteristic scale: conditional
// exceedance ratios fall (within MonotoneSlack) as the threshold grows and
// end below ThinTailMaxRatio.
func AssertThinTail(t *testing.T, s Sample, scale ScaleConfig, cfg AssertionConfig) ConditionalExceedanceProfile {
	t.Helper()

	profile, err := VerifyScaleInvariance(s, scale)
	if err != nil {
		t.Fatalf("Failed to compute exceedance profile: %v", err)
	}
	if len(profile) < 2 {
		t.Fatalf("Exceedance profile too short: %d thresholds retained", len(profile))
	}

	for i := 1; i < len(profile); i++ {
		if profile[i].Ratio > profile[i-1].Ratio+cfg.MonotoneSlack {
			t.Errorf("Ratio rose at threshold %.4g: %.4f → %.4f (slack %.4f)",
				profile[i].Threshold, profile[i-1].Ratio, profile[i].Ratio, cfg.MonotoneSlack)
		}
	}

	last := profile[len(profile)-1]
	if last.Ratio >= cfg.ThinTailMaxRatio {
		t.Errorf("Tail not thin: P(X > %.4g | X > %.4g) = %.4f (thin below %.4f)",
			scale.Factor*last.Threshold, last.Threshold, last.Ratio, cfg.ThinTailMaxRatio)
	}

	t.Logf("✓ Thin tail: ratio %.4f → %.4f over %d thresholds",
		profile[0].Ratio, last.Ratio, len(profile))
	return profile
}

// AssertScaleInvariant verifies P(X > k·x | X > x) ≈ k^(-α) at every threshold.
//
// Mathematical property:
//
//	(k·x)^(-α) / x^(-α) = k^(-α), independent of x
func AssertScaleInvariant(t *testing.T, s Sample, scale ScaleConfig, alpha float64, cfg AssertionConfig) ConditionalExceedanceProfile {
	t.Helper()

	profile, err := VerifyScaleInvariance(s, scale)
	if err != nil {
		t.Fatalf("Failed to compute exceedance profile: %v", err)
	}
	if len(profile) < 2 {
		t.Fatalf("Exceedance profile too short: %d thresholds retained", len(profile))
	}

	mean, std := stat.PopMeanStdDev(profile.Ratios(), nil)
	want := PowerLawRatio(scale.Factor, alpha)

	if std > cfg.MaxRatioStdDev {
		t.Errorf("Ratios not flat: std = %.4f (max %.4f)", std, cfg.MaxRatioStdDev)
	}

	if math.Abs(mean-want) > cfg.RatioTolerance {
		t.Errorf("Mean ratio %.4f differs from k^(-α) = %.4f by more than %.4f",
			mean, want, cfg.RatioTolerance)
	}

	t.Logf("✓ Scale invariant: mean ratio %.4f ≈ %.4f, std %.4f over %d thresholds",
		mean, want, std, len(profile))
	return profile
}

// AssertNonErgodic verifies the ensemble average ends above the initial
// wealth while the typical path ends below it and some entities are ruined.
func AssertNonErgodic(t *testing.T, paths WealthPathSet, ruinThreshold float64) {
	t.Helper()

	if paths.Population() == 0 || paths.Horizon() == 0 {
		t.Fatalf("Empty wealth path set")
	}

	w0 := paths.Paths[0][0]
	final := paths.Horizon() - 1
	ensemble := paths.EnsembleAverage()[final]
	typical := paths.TypicalPath()[final]
	ruin := paths.RuinFraction(ruinThreshold)

	if ensemble <= w0 {
		t.Errorf("Ensemble average did not grow: %.4f ≤ %.4f", ensemble, w0)
	}
	if typical >= w0 {
		t.Errorf("Typical path did not shrink: %.4f ≥ %.4f", typical, w0)
	}
	if ruin <= 0 {
		t.Errorf("No entity fell below %.4f", ruinThreshold)
	}

	t.Logf("✓ Non-ergodic: ensemble %.2f, typical %.4f, ruined %.1f%% (w0 = %.2f)",
		ensemble, typical, ruin*100, w0)
}

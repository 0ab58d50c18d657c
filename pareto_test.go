package fattail

import (
	"reflect"
	"sync"
	"testing"
)

func TestTailTracker_GaussianRegime(t *testing.T) {
	tracker := NewTailTracker(1000)

	// Latency-like stream: mean 50, std 10
	for _, x := range mustDraw(t, FamilyNormal, map[string]float64{"mu": 50, "sigma": 10}, 1000, 3) {
		tracker.Record(x)
	}

	snap := tracker.Snapshot()

	// In a Gaussian P99/P50 stays below 3
	if snap.TailDivergenceRatio > 3.0 {
		t.Errorf("Gaussian should have ratio < 3, got %.2f", snap.TailDivergenceRatio)
	}

	if snap.Tail == nil {
		t.Fatal("Expected a tail estimate for a full window")
	}
	if snap.Regime != RegimeFiniteVariance {
		t.Errorf("Gaussian regime = %s (α = %.2f), want %s", snap.Regime, snap.Tail.Alpha, RegimeFiniteVariance)
	}

	t.Logf("✓ Gaussian Regime:")
	t.Logf("  Mean: %.2f", snap.Mean)
	t.Logf("  P50: %.2f", snap.P50)
	t.Logf("  P99: %.2f", snap.P99)
	t.Logf("  Tail Ratio: %.2f", snap.TailDivergenceRatio)
	t.Logf("  Estimated α: %.2f", snap.Tail.Alpha)
}

func TestTailTracker_PowerLawRegime(t *testing.T) {
	tracker := NewTailTracker(10_000)

	for _, x := range mustDraw(t, FamilyPareto, map[string]float64{"alpha": 1.5}, 10_000, 5) {
		tracker.Record(x)
	}

	snap := tracker.Snapshot()

	// P99/P50 = (100/2)^(1/α) ≈ 13.6 for α = 1.5
	if snap.TailDivergenceRatio < 5.0 {
		t.Errorf("Power law should have ratio > 5, got %.2f", snap.TailDivergenceRatio)
	}

	if snap.Tail == nil {
		t.Fatal("Expected a tail estimate for a full window")
	}
	if snap.Regime != RegimeInfiniteVariance {
		t.Errorf("Pareto(1.5) regime = %s (α = %.2f), want %s", snap.Regime, snap.Tail.Alpha, RegimeInfiniteVariance)
	}

	// The largest draw carries a visible share of the window total
	if snap.MaxToSum <= 0 || snap.MaxToSum >= 1 {
		t.Errorf("MaxToSum = %.4f outside (0, 1)", snap.MaxToSum)
	}

	t.Logf("✓ Power Law Regime:")
	t.Logf("  Mean: %.2f (dominated by the tail)", snap.Mean)
	t.Logf("  P50: %.2f", snap.P50)
	t.Logf("  P99: %.2f", snap.P99)
	t.Logf("  Tail Ratio: %.2f", snap.TailDivergenceRatio)
	t.Logf("  Estimated α: %.2f", snap.Tail.Alpha)
	t.Logf("  Max/Sum: %.4f", snap.MaxToSum)
}

func TestTailTracker_RingBuffer(t *testing.T) {
	tracker := NewTailTracker(3)

	for _, x := range []float64{1, 2} {
		tracker.Record(x)
	}
	if got := tracker.Window(); !reflect.DeepEqual(got, Sample{1, 2}) {
		t.Errorf("Partial window = %v, want [1 2]", got)
	}

	for _, x := range []float64{3, 4, 5} {
		tracker.Record(x)
	}

	// Oldest first, the first two observations overwritten
	if got := tracker.Window(); !reflect.DeepEqual(got, Sample{3, 4, 5}) {
		t.Errorf("Wrapped window = %v, want [3 4 5]", got)
	}
	if tracker.Count() != 5 {
		t.Errorf("Count = %d, want 5", tracker.Count())
	}

	snap := tracker.Snapshot()
	if snap.WindowSize != 3 || snap.SampleCount != 5 {
		t.Errorf("Snapshot window %d / count %d, want 3 / 5", snap.WindowSize, snap.SampleCount)
	}
	// Three values cannot carry a tail estimate
	if snap.Tail != nil || snap.Regime != RegimeUnknown {
		t.Errorf("Tiny window should have no estimate, got %+v (%s)", snap.Tail, snap.Regime)
	}
	if snap.P50 != 4 {
		t.Errorf("P50 = %v, want 4", snap.P50)
	}
}

func TestTailTracker_Empty(t *testing.T) {
	snap := NewTailTracker(0).Snapshot()

	if snap.WindowSize != 0 || snap.Regime != RegimeUnknown || snap.Tail != nil {
		t.Errorf("Empty tracker snapshot = %+v", snap)
	}
}

func TestTailTracker_WithTailQuantile(t *testing.T) {
	tracker := NewTailTracker(100).WithTailQuantile(0.5).WithTailQuantile(1.5)

	for i := 1; i <= 100; i++ {
		tracker.Record(float64(i))
	}

	snap := tracker.Snapshot()
	if snap.Tail == nil {
		t.Fatal("Expected a tail estimate")
	}
	// Median threshold keeps the 0.5 setting, the invalid 1.5 is ignored
	if snap.Tail.TailCount != 50 {
		t.Errorf("TailCount = %d, want 50", snap.Tail.TailCount)
	}
}

func TestTailTracker_Concurrent(t *testing.T) {
	tracker := NewTailTracker(500)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				tracker.Record(float64(offset*1000 + i + 1))
				if i%50 == 0 {
					_ = tracker.Snapshot()
				}
			}
		}(w)
	}
	wg.Wait()

	if tracker.Count() != 2000 {
		t.Errorf("Count = %d, want 2000", tracker.Count())
	}
	if len(tracker.Window()) != 500 {
		t.Errorf("Window length = %d, want 500", len(tracker.Window()))
	}
}

func TestClassifyTail(t *testing.T) {
	tests := []struct {
		est  TailEstimate
		want TailRegime
	}{
		{TailEstimate{Alpha: -0.5, Degenerate: true}, RegimeUnknown},
		{TailEstimate{Alpha: 0.8}, RegimeInfiniteMean},
		{TailEstimate{Alpha: 1.0}, RegimeInfiniteMean},
		{TailEstimate{Alpha: 1.5}, RegimeInfiniteVariance},
		{TailEstimate{Alpha: 2.0}, RegimeInfiniteVariance},
		{TailEstimate{Alpha: 3.0}, RegimeFiniteVariance},
	}

	for _, tt := range tests {
		if got := ClassifyTail(tt.est); got != tt.want {
			t.Errorf("ClassifyTail(α=%.1f, degenerate=%v) = %s, want %s",
				tt.est.Alpha, tt.est.Degenerate, got, tt.want)
		}
	}
}

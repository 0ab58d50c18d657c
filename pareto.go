package fattail

import (
	"sync"
)

// TailRegime classifies a tail by which moments exist.
type TailRegime string

const (
	RegimeUnknown          TailRegime = "UNKNOWN"           // Not enough tail data, or a degenerate fit
	RegimeInfiniteMean     TailRegime = "INFINITE_MEAN"     // α ≤ 1: even the average is meaningless
	RegimeInfiniteVariance TailRegime = "INFINITE_VARIANCE" // 1 < α ≤ 2: mean exists, STD does not
	RegimeFiniteVariance   TailRegime = "FINITE_VARIANCE"   // α > 2: classical statistics apply (slowly)
)

// ClassifyTail maps a tail estimate onto its moment regime.
func ClassifyTail(e TailEstimate) TailRegime {
	switch {
	case e.Degenerate:
		return RegimeUnknown
	case e.Alpha <= 1:
		return RegimeInfiniteMean
	case e.Alpha <= 2:
		return RegimeInfiniteVariance
	default:
		return RegimeFiniteVariance
	}
}

// TailTracker keeps the most recent observations of a stream in a ring
// buffer and reports their tail behaviour on demand.
//
// THE DOMINATED AVERAGE PROBLEM:
//
// In a thin-tailed stream P99 sits a few multiples above the median and the
// mean is meaningful. In a power-law stream P99 can be orders of magnitude
// above the median and a handful of observations carry the mean.
//
// Example:
//
//	tracker := NewTailTracker(1000) // Keep last 1000 observations
//
//	for _, x := range stream {
//	    tracker.Record(x)
//	}
//
//	snap := tracker.Snapshot()
//	if snap.Regime == RegimeInfiniteVariance {
//	    // Stop reporting standard deviations for this stream
//	}
//
// TailTracker is safe for concurrent use. It is the only mutable type in the
// package and belongs to whoever created it.
type TailTracker struct {
	mu           sync.RWMutex
	samples      []float64 // Ring buffer of recent observations
	maxSamples   int       // Buffer size
	writeIndex   int       // Next write position
	sampleCount  int64     // Total observations recorded (monotonic)
	tailQuantile float64
}

// NewTailTracker creates a tracker with a fixed-size ring buffer.
//
// The buffer size bounds the window the tail is estimated on. The default
// tail quantile (0.9) needs at least 30 observations in the window before
// Snapshot reports an estimate.
func NewTailTracker(maxSamples int) *TailTracker {
	if maxSamples <= 0 {
		maxSamples = 1000
	}

	return &TailTracker{
		samples:      make([]float64, maxSamples),
		maxSamples:   maxSamples,
		tailQuantile: DefaultTailQuantile,
	}
}

// WithTailQuantile sets the quantile above which observations count as tail.
// Values outside (0, 1) are ignored.
func (t *TailTracker) WithTailQuantile(q float64) *TailTracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	if q > 0 && q < 1 {
		t.tailQuantile = q
	}
	return t
}

// Record adds an observation, overwriting the oldest once the buffer is full.
func (t *TailTracker) Record(x float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.samples[t.writeIndex] = x
	t.writeIndex = (t.writeIndex + 1) % t.maxSamples
	t.sampleCount++
}

// Count returns the total number of observations ever recorded.
func (t *TailTracker) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sampleCount
}

// Window returns a copy of the buffered observations, oldest first.
func (t *TailTracker) Window() Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.windowLocked()
}

func (t *TailTracker) windowLocked() Sample {
	if t.sampleCount < int64(t.maxSamples) {
		out := make(Sample, t.sampleCount)
		copy(out, t.samples[:t.sampleCount])
		return out
	}

	out := make(Sample, 0, t.maxSamples)
	out = append(out, t.samples[t.writeIndex:]...)
	out = append(out, t.samples[:t.writeIndex]...)
	return out
}

// TailSnapshot is a statistical summary of the tracker's window.
type TailSnapshot struct {
	SampleCount         int64         `json:"sample_count"`
	WindowSize          int           `json:"window_size"`
	Mean                float64       `json:"mean"` // CAUTION: meaningless when Regime is INFINITE_MEAN
	P50                 float64       `json:"p50"`
	P99                 float64       `json:"p99"`
	TailDivergenceRatio float64       `json:"tail_divergence_ratio"` // P99 / P50, 0 when P50 is 0
	MaxToSum            float64       `json:"max_to_sum"`            // Largest |x| over Σ|x| in the window
	Tail                *TailEstimate `json:"tail,omitempty"`        // nil when the window has too little tail
	Regime              TailRegime    `json:"regime"`
}

// Snapshot summarizes the current window.
func (t *TailTracker) Snapshot() TailSnapshot {
	t.mu.RLock()
	window := t.windowLocked()
	count := t.sampleCount
	q := t.tailQuantile
	t.mu.RUnlock()

	snap := TailSnapshot{
		SampleCount: count,
		WindowSize:  len(window),
		Regime:      RegimeUnknown,
	}
	if len(window) == 0 {
		return snap
	}

	sorted := window.Sorted()
	snap.P50 = quantileSorted(sorted, 0.50)
	snap.P99 = quantileSorted(sorted, 0.99)
	if snap.P50 != 0 {
		snap.TailDivergenceRatio = snap.P99 / snap.P50
	}

	var sum, absSum, absMax float64
	for _, x := range window {
		sum += x
		a := x
		if a < 0 {
			a = -a
		}
		absSum += a
		if a > absMax {
			absMax = a
		}
	}
	snap.Mean = sum / float64(len(window))
	if absSum > 0 {
		snap.MaxToSum = absMax / absSum
	}

	if est, err := EstimateTail(window, q); err == nil {
		snap.Tail = &est
		snap.Regime = ClassifyTail(est)
	}

	return snap
}

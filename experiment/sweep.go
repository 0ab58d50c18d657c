package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/alexshd/fattail"
)

// Level contains the statistics of one prefix length in a convergence sweep.
type Level struct {
	N        int                   `json:"n"`          // Number of draws in the prefix
	Mean     float64               `json:"mean"`       // Arithmetic mean of the prefix
	Std      float64               `json:"std"`        // Running std at N (prefix mean as reference)
	MAD      float64               `json:"mad"`        // Running MAD at N (prefix mean as reference)
	MaxToSum float64               `json:"max_to_sum"` // Largest |x| over Σ|x|
	Tail     *fattail.TailEstimate `json:"tail,omitempty"`
	Elapsed  time.Duration         `json:"elapsed_ns"`
}

// MarshalJSON writes non-finite statistics as null and sets "overflow". A
// log-Pareto prefix of a million draws already pushes the running std past
// the float64 range, and encoding/json rejects ±Inf and NaN.
func (l Level) MarshalJSON() ([]byte, error) {
	type plain Level
	out := struct {
		plain
		Mean     *float64              `json:"mean"`
		Std      *float64              `json:"std"`
		MAD      *float64              `json:"mad"`
		MaxToSum *float64              `json:"max_to_sum"`
		Tail     *fattail.TailEstimate `json:"tail,omitempty"`
		Overflow bool                  `json:"overflow,omitempty"`
	}{plain: plain(l), Tail: l.Tail}

	finite := func(v float64) *float64 {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			out.Overflow = true
			return nil
		}
		return &v
	}
	out.Mean = finite(l.Mean)
	out.Std = finite(l.Std)
	out.MAD = finite(l.MAD)
	out.MaxToSum = finite(l.MaxToSum)

	if t := l.Tail; t != nil {
		if finite(t.Alpha) == nil || finite(t.Threshold) == nil || finite(t.RSquared) == nil {
			out.Tail = nil
		}
	}

	return json.Marshal(out)
}

// Sweep draws max(sizes) values once and evaluates every requested prefix.
//
// Under a thin tail the levels converge as N grows. Under a fat tail the
// mean and std keep drifting with N and a single draw can dominate the sum:
// adding data does not buy the usual √N.
//
// Levels are returned in the order of sizes. A prefix too short for a tail
// estimate gets a nil Tail, not an error.
func Sweep(ctx context.Context, source fattail.SampleSource, req fattail.SampleRequest, sizes []int) ([]Level, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one size", fattail.ErrInvalidConfiguration)
	}
	largest := slices.Max(sizes)
	if slices.Min(sizes) < 1 {
		return nil, fmt.Errorf("%w: sweep sizes must be ≥ 1, got %v", fattail.ErrInvalidConfiguration, sizes)
	}

	req.Count = largest
	sample, err := source.Draw(req)
	if err != nil {
		return nil, fmt.Errorf("sweep draw: %w", err)
	}

	levels := make([]Level, 0, len(sizes))
	for _, n := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		level, err := measureLevel(sample[:n])
		if err != nil {
			return nil, fmt.Errorf("failed at N=%d: %w", n, err)
		}
		levels = append(levels, level)
	}

	return levels, nil
}

// measureLevel computes the statistics of one prefix.
func measureLevel(prefix fattail.Sample) (Level, error) {
	start := time.Now()

	trace, err := fattail.RunningDispersion(prefix)
	if err != nil {
		return Level{}, err
	}
	ratios, err := fattail.MaxToSumRatio(prefix.Abs())
	if err != nil {
		return Level{}, err
	}

	last := trace.Len() - 1
	level := Level{
		N:        len(prefix),
		Mean:     trace.Mean,
		Std:      trace.Std[last],
		MAD:      trace.MAD[last],
		MaxToSum: ratios[len(ratios)-1],
	}

	// Tails of signed data are estimated on the positive side only.
	est, err := fattail.EstimateTail(prefix.Positive(), fattail.DefaultTailQuantile)
	switch {
	case err == nil:
		level.Tail = &est
	case errors.Is(err, fattail.ErrInsufficientTailData), errors.Is(err, fattail.ErrEmptySample):
	default:
		return Level{}, err
	}

	level.Elapsed = time.Since(start)
	return level, nil
}

// Drift returns (max - min) / |mean| of a statistic across levels: how far
// it is from settling as N grows. Returns +Inf when the mean is zero.
func Drift(levels []Level, stat func(Level) float64) float64 {
	if len(levels) == 0 {
		return 0
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, l := range levels {
		v := stat(l)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}

	mean := math.Abs(sum / float64(len(levels)))
	if mean == 0 {
		return math.Inf(1)
	}
	return (hi - lo) / mean
}

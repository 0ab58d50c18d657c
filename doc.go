// Package fattail measures how heavy-tailed ("fat-tail") processes differ
// from thin-tailed ones.
//
// # Overview
//
// Under a fat tail the familiar statistics stop working: the standard
// deviation never settles, the average of a multiplicative game grows while
// almost every player goes broke, and there is no characteristic scale.
// fattail contains the small set of estimators and simulators that expose
// these effects on finite samples.
//
// # Architecture
//
// The package components:
//
//   - survival.go       - Empirical survival function P(X > x)
//   - tail.go           - Tail exponent α by log-log regression
//   - dispersion.go     - Running MAD vs running STD, max-to-sum, rolling volatility
//   - scale.go          - Scale invariance: P(X > k·x | X > x)
//   - ergodicity.go     - Multiplicative wealth paths, ensemble vs typical path
//   - characteristic.go - Numeric characteristic function of a density grid
//   - zipf.go           - Rank-size (Zipf) curve
//   - exposure.go       - Linear, concave and convex payoff profiles
//   - source.go         - Seeded samples and densities from gonum distuv
//   - pareto.go         - Ring-buffer tail tracker for streams
//   - assertions.go     - Test helpers for tail properties
//
// Every function is pure: samples are never mutated, randomness only enters
// through an explicitly seeded source.
//
// # Quick Start
//
// Draw a Pareto sample and estimate its tail:
//
//	s, err := fattail.GonumSource{}.Draw(fattail.SampleRequest{
//	    Family: fattail.FamilyPareto,
//	    Params: map[string]float64{"alpha": 1.5},
//	    Count:  100_000,
//	    Seed:   42,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	est, err := fattail.EstimateTail(s, fattail.DefaultTailQuantile)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("α = %.3f (trustworthy: %v)\n", est.Alpha, est.Trustworthy())
//
// # The Tail Exponent
//
// A power-law survival function
//
//	P(X > x) = (x / x_m)^(-α)
//
// is a straight line of slope -α on log-log axes. EstimateTail fits that line
// to the top 10% of the sample. This is a deliberately simple estimator, not a
// bias-corrected Hill estimator. What α means:
//   - α ≤ 1: infinite mean
//   - α ≤ 2: infinite variance (STD is meaningless, MAD still works if α > 1)
//   - α ≈ 1.16: the "80/20" rule
//
// # Ergodicity
//
// The coin game (+50% / -40%) has an ensemble growth rate of 1.05 per round
// and a time-average growth rate of sqrt(0.9) ≈ 0.949:
//
//	dist := fattail.CoinFlipGame()
//	dist.EnsembleGrowthRate()    // 1.05
//	dist.TimeAverageGrowthRate() // 0.9487
//	dist.NonErgodic()            // true
//
//	paths, err := fattail.Simulate(ctx, fattail.DefaultSimulationConfig())
//	paths.EnsembleAverage() // grows
//	paths.TypicalPath()     // decays
//
// Simulate generates rows concurrently; each entity has its own random
// stream derived from the seed, so results do not depend on the worker count.
//
// # Errors
//
// Failures wrap ErrEmptySample, ErrInsufficientTailData or
// ErrInvalidConfiguration. A non-decaying tail fit is not an error: it is
// reported through TailEstimate.Degenerate.
//
// # Testing
//
// Use assertions to validate tail properties:
//
//	func TestReturnsAreFatTailed(t *testing.T) {
//	    cfg := fattail.DefaultAssertionConfig()
//	    fattail.AssertFatTail(t, returns.Abs(), cfg)
//	    fattail.AssertScaleInvariant(t, returns.Abs(), fattail.DefaultScaleConfig(), 1.5, cfg)
//	}
//
// # See Also
//
//   - experiment/ - YAML-configured runner for every experiment
//   - examples/   - Working programs
package fattail

package fattail

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ProbabilityTolerance is how far outcome probabilities may sum from 1.
const ProbabilityTolerance = 1e-9

// DefaultRuinThreshold counts an entity as ruined below one unit of currency.
const DefaultRuinThreshold = 1.0

// Outcome is one branch of a multiplicative gamble.
type Outcome struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Multiplier  float64 `json:"multiplier"` // Wealth is multiplied by this when the outcome occurs
}

// MultiplierDistribution is a discrete distribution of wealth multipliers.
type MultiplierDistribution []Outcome

// CoinFlipGame is the classic non-ergodic gamble: +50% or -40% on a fair coin.
//
//	Ensemble:     0.5·1.5 + 0.5·0.6 = 1.05   (+5% per round "on average")
//	Time average: sqrt(1.5·0.6)     ≈ 0.949  (-5% per round for the typical player)
func CoinFlipGame() MultiplierDistribution {
	return MultiplierDistribution{
		{Label: "win", Probability: 0.5, Multiplier: 1.5},
		{Label: "loss", Probability: 0.5, Multiplier: 0.6},
	}
}

// Validate checks probabilities sum to 1 and every multiplier is positive.
func (d MultiplierDistribution) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: multiplier distribution has no outcomes", ErrInvalidConfiguration)
	}

	var total float64
	for _, o := range d {
		if math.IsNaN(o.Probability) || o.Probability < 0 {
			return fmt.Errorf("%w: outcome %q has probability %v", ErrInvalidConfiguration, o.Label, o.Probability)
		}
		if !(o.Multiplier > 0) || math.IsInf(o.Multiplier, 1) {
			return fmt.Errorf("%w: outcome %q has non-positive multiplier %v", ErrInvalidConfiguration, o.Label, o.Multiplier)
		}
		total += o.Probability
	}

	if math.Abs(total-1) > ProbabilityTolerance {
		return fmt.Errorf("%w: outcome probabilities sum to %v, not 1", ErrInvalidConfiguration, total)
	}
	return nil
}

// EnsembleGrowthRate returns Σ p·m, the growth factor of the expected value per step.
func (d MultiplierDistribution) EnsembleGrowthRate() float64 {
	var rate float64
	for _, o := range d {
		rate += o.Probability * o.Multiplier
	}
	return rate
}

// TimeAverageGrowthRate returns exp(Σ p·ln m), the growth factor per step of
// a single path followed over a long time (geometric mean of the multipliers).
func (d MultiplierDistribution) TimeAverageGrowthRate() float64 {
	var logRate float64
	for _, o := range d {
		logRate += o.Probability * math.Log(o.Multiplier)
	}
	return math.Exp(logRate)
}

// NonErgodic reports the dangerous divergence: the ensemble average grows
// while the typical path decays.
func (d MultiplierDistribution) NonErgodic() bool {
	return d.EnsembleGrowthRate() > 1 && d.TimeAverageGrowthRate() < 1
}

func (d MultiplierDistribution) weights() []float64 {
	w := make([]float64, len(d))
	for i, o := range d {
		w[i] = o.Probability
	}
	return w
}

// Streams hands out one independent random source per entity.
//
// Implementations must be deterministic in the entity index so that
// parallel and sequential simulation produce the same paths, and safe for
// concurrent use: Simulate calls Stream from every worker at once. Each
// returned source is used by a single goroutine.
type Streams interface {
	Stream(entity int) rand.Source
}

// PCGStreams derives a PCG generator from a master seed and the entity index.
type PCGStreams struct {
	Seed uint64
}

// Stream returns the source for one entity.
func (p PCGStreams) Stream(entity int) rand.Source {
	return rand.NewPCG(p.Seed, splitMix64(uint64(entity)))
}

// splitMix64 scrambles consecutive indices into well-separated stream seeds.
func splitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// SimulationConfig controls a multiplicative wealth simulation.
type SimulationConfig struct {
	Population    int                    // P: number of independent entities
	Horizon       int                    // T: time steps per path, column 0 included
	InitialWealth float64                // w0 at column 0
	Distribution  MultiplierDistribution // Per-step multiplier outcomes
	Seed          uint64                 // Master seed for PCGStreams when Streams is nil
	Streams       Streams                // Optional injected per-entity sources
	Workers       int                    // Concurrent row workers (0 = GOMAXPROCS)
}

// DefaultSimulationConfig returns the 1000 players × 100 rounds coin game.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Population:    1000,
		Horizon:       100,
		InitialWealth: 100,
		Distribution:  CoinFlipGame(),
		Seed:          42,
	}
}

// Validate checks the configuration before any path is generated.
func (c SimulationConfig) Validate() error {
	if c.Population < 1 {
		return fmt.Errorf("%w: population %d must be ≥ 1", ErrInvalidConfiguration, c.Population)
	}
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon %d must be ≥ 1", ErrInvalidConfiguration, c.Horizon)
	}
	if !(c.InitialWealth > 0) || math.IsInf(c.InitialWealth, 1) {
		return fmt.Errorf("%w: initial wealth %v must be positive", ErrInvalidConfiguration, c.InitialWealth)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d must be ≥ 0", ErrInvalidConfiguration, c.Workers)
	}
	return c.Distribution.Validate()
}

// WealthPathSet is a P × T matrix of wealth paths.
//
// Paths[i][0] is the initial wealth; Paths[i][t] = Paths[i][t-1]·m with m
// drawn i.i.d. from the distribution.
type WealthPathSet struct {
	Paths        [][]float64            `json:"paths"`
	Distribution MultiplierDistribution `json:"distribution"`
}

// Population returns P.
func (w WealthPathSet) Population() int {
	return len(w.Paths)
}

// Horizon returns T.
func (w WealthPathSet) Horizon() int {
	if len(w.Paths) == 0 {
		return 0
	}
	return len(w.Paths[0])
}

// Column returns a copy of every entity's wealth at time t.
func (w WealthPathSet) Column(t int) []float64 {
	col := make([]float64, len(w.Paths))
	for i, row := range w.Paths {
		col[i] = row[t]
	}
	return col
}

// EnsembleAverage returns the cross-sectional mean wealth at every time step.
//
// This is what "expected value" reasoning looks at, and in a non-ergodic
// game it is carried by a shrinking number of lucky paths.
func (w WealthPathSet) EnsembleAverage() []float64 {
	out := make([]float64, w.Horizon())
	for t := range out {
		out[t] = stat.Mean(w.Column(t), nil)
	}
	return out
}

// TypicalPath returns the cross-sectional median wealth at every time step:
// what happens to the typical entity.
func (w WealthPathSet) TypicalPath() []float64 {
	out := make([]float64, w.Horizon())
	for t := range out {
		col := Sample(w.Column(t)).Sorted()
		out[t] = quantileSorted(col, 0.5)
	}
	return out
}

// RuinFraction returns the fraction of entities whose final wealth is below threshold.
func (w WealthPathSet) RuinFraction(threshold float64) float64 {
	if len(w.Paths) == 0 {
		return 0
	}
	final := w.Horizon() - 1
	var ruined int
	for _, row := range w.Paths {
		if row[final] < threshold {
			ruined++
		}
	}
	return float64(ruined) / float64(len(w.Paths))
}

// Simulate generates cfg.Population independent wealth paths.
//
// Each entity draws from its own stream (cfg.Streams, or PCGStreams seeded
// with cfg.Seed), and rows are written to disjoint slices, so the workers
// share nothing mutable and any worker count yields the same result.
func Simulate(ctx context.Context, cfg SimulationConfig) (WealthPathSet, error) {
	if err := cfg.Validate(); err != nil {
		return WealthPathSet{}, err
	}

	streams := cfg.Streams
	if streams == nil {
		streams = PCGStreams{Seed: cfg.Seed}
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	dist := make(MultiplierDistribution, len(cfg.Distribution))
	copy(dist, cfg.Distribution)
	weights := dist.weights()

	paths := make([][]float64, cfg.Population)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < cfg.Population; i++ {
		entity := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			paths[entity] = simulatePath(cfg.Horizon, cfg.InitialWealth, dist, weights, streams.Stream(entity))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return WealthPathSet{}, fmt.Errorf("simulate: %w", err)
	}

	return WealthPathSet{Paths: paths, Distribution: dist}, nil
}

// simulatePath builds one cumulative-product wealth path.
func simulatePath(horizon int, w0 float64, dist MultiplierDistribution, weights []float64, src rand.Source) []float64 {
	outcomes := distuv.NewCategorical(weights, src)

	path := make([]float64, horizon)
	path[0] = w0
	for t := 1; t < horizon; t++ {
		k := int(outcomes.Rand())
		path[t] = path[t-1] * dist[k].Multiplier
	}
	return path
}

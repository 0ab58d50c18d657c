package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alexshd/fattail"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Per-experiment seed offsets. Each experiment draws from its own stream so
// adding one never shifts the samples of another.
const (
	seedSurvival uint64 = iota * 1000
	seedTail
	seedDispersion
	seedMaxToSum
	seedErgodicity
	seedScale
	seedVolatility
	seedExposure
	seedConvergence
)

// paretoEightyTwenty is the α of the 80/20 rule.
const paretoEightyTwenty = 1.16

// Runner executes every experiment of a Config.
type Runner struct {
	cfg    Config
	source fattail.SampleSource
	logger *slog.Logger
}

// NewRunner creates a runner. A nil source means fattail.GonumSource and a
// nil logger means slog.Default().
func NewRunner(cfg Config, source fattail.SampleSource, logger *slog.Logger) *Runner {
	if source == nil {
		source = fattail.GonumSource{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, source: source, logger: logger}
}

// Run executes all experiments concurrently and assembles the report.
// The first failure cancels the rest and is returned; there are no partial
// reports.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if err := r.cfg.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Config:    r.cfg,
	}
	r.logger.Info("Run starting", "run_id", report.RunID, "seed", r.cfg.Seed, "samples", r.cfg.Samples)

	// Each experiment writes only its own report field.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { report.Survival, err = r.survival(ctx); return wrap("survival", err) })
	g.Go(func() (err error) { report.Tails, err = r.tails(ctx); return wrap("tail", err) })
	g.Go(func() (err error) { report.Dispersion, err = r.dispersion(ctx); return wrap("dispersion", err) })
	g.Go(func() (err error) { report.MaxToSum, err = r.maxToSum(ctx); return wrap("max-to-sum", err) })
	g.Go(func() (err error) { report.Ergodicity, err = r.ergodicity(ctx); return wrap("ergodicity", err) })
	g.Go(func() (err error) { report.Scale, err = r.scale(ctx); return wrap("scale", err) })
	g.Go(func() (err error) { report.Characteristic, err = r.characteristic(ctx); return wrap("characteristic", err) })
	g.Go(func() (err error) { report.Volatility, err = r.volatility(ctx); return wrap("volatility", err) })
	g.Go(func() (err error) { report.Exposures, err = r.exposures(ctx); return wrap("exposure", err) })
	g.Go(func() (err error) { report.Convergence, err = r.convergence(ctx); return wrap("convergence", err) })

	if err := g.Wait(); err != nil {
		r.logger.Error("Run failed", "run_id", report.RunID, "error", err)
		return Report{}, err
	}

	report.Elapsed = time.Since(report.StartedAt)
	r.logger.Info("Run complete", "run_id", report.RunID, "elapsed", report.Elapsed)
	return report, nil
}

func wrap(experiment string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s experiment: %w", experiment, err)
}

// draw fetches a sample from the source with a seed offset.
func (r *Runner) draw(ctx context.Context, family string, params map[string]float64, count int, offset uint64) (fattail.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.source.Draw(fattail.SampleRequest{
		Family: family,
		Params: params,
		Count:  count,
		Seed:   r.cfg.Seed + offset,
	})
}

func (r *Runner) survival(ctx context.Context) ([]SurvivalResult, error) {
	inputs := []struct {
		family string
		params map[string]float64
	}{
		{fattail.FamilyNormal, nil},
		{fattail.FamilyPareto, map[string]float64{"alpha": paretoEightyTwenty}},
	}

	out := make([]SurvivalResult, 0, len(inputs))
	for i, in := range inputs {
		s, err := r.draw(ctx, in.family, in.params, r.cfg.Samples, seedSurvival+uint64(i))
		if err != nil {
			return nil, err
		}

		// Log-log axes cannot show non-positive values.
		curve, err := fattail.Survival(s.Positive())
		if err != nil {
			return nil, err
		}

		res := SurvivalResult{Family: in.family, N: len(curve), Max: curve[len(curve)-1].Value}
		for _, k := range []int{1000, 100, 10} {
			if k <= len(curve) {
				res.Tail = append(res.Tail, curve[len(curve)-k])
			}
		}

		r.logger.Info("Survival curve", "family", res.Family, "n", res.N, "max", res.Max)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) tails(ctx context.Context) ([]TailResult, error) {
	out := make([]TailResult, 0, len(r.cfg.Tail.Alphas))
	for i, alpha := range r.cfg.Tail.Alphas {
		s, err := r.draw(ctx, fattail.FamilyPareto, map[string]float64{"alpha": alpha}, r.cfg.Samples, seedTail+uint64(i))
		if err != nil {
			return nil, err
		}

		est, err := fattail.EstimateTail(s, r.cfg.Tail.Quantile)
		if err != nil {
			return nil, err
		}
		slope, err := fattail.ZipfSlope(s)
		if err != nil {
			return nil, err
		}

		res := TailResult{
			TrueAlpha:   alpha,
			Estimate:    est,
			Regime:      fattail.ClassifyTail(est),
			Trustworthy: est.Trustworthy(),
			ZipfSlope:   slope,
		}

		level := slog.LevelInfo
		if !res.Trustworthy {
			level = slog.LevelWarn
		}
		r.logger.Log(ctx, level, "Tail exponent",
			"true_alpha", alpha,
			"alpha", est.Alpha,
			"r_squared", est.RSquared,
			"tail_count", est.TailCount,
			"regime", res.Regime,
			"trustworthy", res.Trustworthy,
			"zipf_slope", slope,
		)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) dispersion(ctx context.Context) ([]DispersionResult, error) {
	inputs := []struct {
		family string
		params map[string]float64
	}{
		{fattail.FamilyNormal, nil},
		{fattail.FamilyPareto, map[string]float64{"alpha": r.cfg.Dispersion.Alpha}},
	}

	out := make([]DispersionResult, 0, len(inputs))
	for i, in := range inputs {
		s, err := r.draw(ctx, in.family, in.params, r.cfg.Samples, seedDispersion+uint64(i))
		if err != nil {
			return nil, err
		}

		trace, err := fattail.RunningDispersion(s)
		if err != nil {
			return nil, err
		}

		n := trace.Len()
		window := max(1, int(float64(n)*r.cfg.Dispersion.Window))
		res := DispersionResult{
			Family:       in.family,
			FinalStd:     trace.Std[n-1],
			FinalMAD:     trace.MAD[n-1],
			StdVariation: variation(trace.Std[n-window:]),
			MADVariation: variation(trace.MAD[n-window:]),
		}

		r.logger.Info("Running dispersion",
			"family", res.Family,
			"std", res.FinalStd,
			"mad", res.FinalMAD,
			"std_variation", res.StdVariation,
			"mad_variation", res.MADVariation,
		)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) maxToSum(ctx context.Context) ([]MaxToSumResult, error) {
	inputs := []struct {
		family string
		params map[string]float64
	}{
		{fattail.FamilyHalfNormal, nil},
		{fattail.FamilyPareto, map[string]float64{"alpha": paretoEightyTwenty}},
	}

	out := make([]MaxToSumResult, 0, len(inputs))
	for i, in := range inputs {
		s, err := r.draw(ctx, in.family, in.params, r.cfg.Samples, seedMaxToSum+uint64(i))
		if err != nil {
			return nil, err
		}

		ratios, err := fattail.MaxToSumRatio(s)
		if err != nil {
			return nil, err
		}

		res := MaxToSumResult{
			Family: in.family,
			Final:  ratios[len(ratios)-1],
			Peak:   floats.Max(ratios[len(ratios)/2:]),
		}
		r.logger.Info("Max-to-sum", "family", res.Family, "final", res.Final, "peak", res.Peak)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) ergodicity(ctx context.Context) (ErgodicityResult, error) {
	e := r.cfg.Ergodicity
	dist := e.Distribution()

	paths, err := fattail.Simulate(ctx, fattail.SimulationConfig{
		Population:    e.Population,
		Horizon:       e.Horizon,
		InitialWealth: e.InitialWealth,
		Distribution:  dist,
		Seed:          r.cfg.Seed + seedErgodicity,
		Workers:       r.cfg.Workers,
	})
	if err != nil {
		return ErgodicityResult{}, err
	}

	final := paths.Horizon() - 1
	res := ErgodicityResult{
		EnsembleGrowthRate:    dist.EnsembleGrowthRate(),
		TimeAverageGrowthRate: dist.TimeAverageGrowthRate(),
		NonErgodic:            dist.NonErgodic(),
		InitialWealth:         e.InitialWealth,
		FinalEnsembleAverage:  paths.EnsembleAverage()[final],
		FinalTypical:          paths.TypicalPath()[final],
		RuinFraction:          paths.RuinFraction(e.RuinThreshold),
	}

	r.logger.Info("Ergodicity",
		"ensemble_growth", res.EnsembleGrowthRate,
		"time_average_growth", res.TimeAverageGrowthRate,
		"non_ergodic", res.NonErgodic,
		"final_ensemble", res.FinalEnsembleAverage,
		"final_typical", res.FinalTypical,
		"ruin_fraction", res.RuinFraction,
	)
	return res, nil
}

func (r *Runner) scale(ctx context.Context) ([]ScaleResult, error) {
	sc := r.cfg.Scale
	inputs := []struct {
		family   string
		params   map[string]float64
		expected float64
	}{
		{fattail.FamilyPareto, map[string]float64{"alpha": sc.Alpha}, fattail.PowerLawRatio(sc.Factor, sc.Alpha)},
		{fattail.FamilyHalfNormal, nil, 0},
	}

	out := make([]ScaleResult, 0, len(inputs))
	for i, in := range inputs {
		s, err := r.draw(ctx, in.family, in.params, r.cfg.Samples, seedScale+uint64(i))
		if err != nil {
			return nil, err
		}

		profile, err := fattail.VerifyScaleInvariance(s, sc.ScaleConfig())
		if err != nil {
			return nil, err
		}

		res := ScaleResult{Family: in.family, Expected: in.expected, Profile: profile}
		if len(profile) > 0 {
			res.MeanRatio, res.StdRatio = stat.PopMeanStdDev(profile.Ratios(), nil)
		}

		for _, pt := range profile {
			r.logger.Debug("Exceedance", "family", in.family, "threshold", pt.Threshold, "ratio", pt.Ratio, "support", pt.Support)
		}
		r.logger.Info("Scale invariance",
			"family", res.Family,
			"thresholds", len(profile),
			"mean_ratio", res.MeanRatio,
			"std_ratio", res.StdRatio,
			"expected", res.Expected,
		)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) characteristic(ctx context.Context) ([]CharacteristicResult, error) {
	cc := r.cfg.Characteristic
	freqs := floats.Span(make([]float64, cc.Frequencies), -cc.MaxFreq, cc.MaxFreq)

	inputs := []struct {
		family string
		exact  func(t float64) float64
	}{
		{fattail.FamilyNormal, func(t float64) float64 { return math.Exp(-t * t / 2) }},
		{fattail.FamilyCauchy, func(t float64) float64 { return math.Exp(-math.Abs(t)) }},
	}

	out := make([]CharacteristicResult, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pdf, err := fattail.Density(in.family, nil)
		if err != nil {
			return nil, err
		}
		grid, err := fattail.NewDensityGrid(cc.GridMin, cc.GridMax, cc.GridPoints, pdf)
		if err != nil {
			return nil, err
		}
		cf, err := fattail.CharacteristicFunction(grid, freqs)
		if err != nil {
			return nil, err
		}

		res := CharacteristicResult{Family: in.family, Mass: grid.Mass(), Sample: cf}
		for _, pt := range cf {
			res.MaxError = math.Max(res.MaxError, math.Abs(pt.Real-in.exact(pt.Frequency)))
		}

		r.logger.Info("Characteristic function", "family", res.Family, "mass", res.Mass, "max_error", res.MaxError)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) volatility(ctx context.Context) ([]VolatilityResult, error) {
	inputs := []struct {
		family string
		params map[string]float64
	}{
		{fattail.FamilyNormal, nil},
		{fattail.FamilySignedPareto, map[string]float64{"alpha": r.cfg.Volatility.Alpha}},
	}

	out := make([]VolatilityResult, 0, len(inputs))
	for i, in := range inputs {
		s, err := r.draw(ctx, in.family, in.params, r.cfg.Samples, seedVolatility+uint64(i))
		if err != nil {
			return nil, err
		}

		vol, err := fattail.RollingVolatility(s, r.cfg.Volatility.Window)
		if err != nil {
			return nil, err
		}

		res := VolatilityResult{Family: in.family, Min: floats.Min(vol), Max: floats.Max(vol)}
		if res.Min > 0 {
			res.Spread = res.Max / res.Min
		}
		r.logger.Info("Rolling volatility", "family", res.Family, "min", res.Min, "max", res.Max, "spread", res.Spread)
		out = append(out, res)
	}
	return out, nil
}

// exposures evaluates the payoff profiles on fat-tailed daily market moves
// (Student-t, ν = 3, 2% scale).
func (r *Runner) exposures(ctx context.Context) ([]ExposureResult, error) {
	moves, err := r.draw(ctx, fattail.FamilyStudentT,
		map[string]float64{"nu": 3, "sigma": 0.02}, r.cfg.Samples, seedExposure)
	if err != nil {
		return nil, err
	}
	worst := floats.Min(moves)

	out := make([]ExposureResult, 0, 3)
	for _, e := range fattail.DefaultExposures() {
		pnl, err := e.Profile(moves)
		if err != nil {
			return nil, err
		}

		res := ExposureResult{
			Kind:      e.Kind,
			Crash:     e.Payoff(worst),
			Asymmetry: e.Asymmetry(worst),
			Mean:      stat.Mean(pnl, nil),
		}
		r.logger.Info("Exposure", "kind", res.Kind, "worst_move", worst, "crash", res.Crash, "mean", res.Mean)
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) convergence(ctx context.Context) ([]Level, error) {
	cc := r.cfg.Convergence
	levels, err := Sweep(ctx, r.source, fattail.SampleRequest{
		Family: cc.Family,
		Params: cc.Params,
		Seed:   r.cfg.Seed + seedConvergence,
	}, cc.Sizes)
	if err != nil {
		return nil, err
	}

	for _, l := range levels {
		attrs := []any{"family", cc.Family, "n", l.N, "mean", l.Mean, "std", l.Std, "mad", l.MAD, "max_to_sum", l.MaxToSum}
		if l.Tail != nil {
			attrs = append(attrs, "alpha", l.Tail.Alpha)
		}
		r.logger.Info("Convergence", attrs...)
	}
	r.logger.Info("Convergence drift",
		"family", cc.Family,
		"std_drift", Drift(levels, func(l Level) float64 { return l.Std }),
		"mad_drift", Drift(levels, func(l Level) float64 { return l.MAD }),
	)
	return levels, nil
}

// variation returns (max - min) / mean of a window, 0 for a zero mean.
func variation(w []float64) float64 {
	mean := stat.Mean(w, nil)
	if mean == 0 {
		return 0
	}
	return (floats.Max(w) - floats.Min(w)) / mean
}

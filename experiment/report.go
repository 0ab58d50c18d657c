package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alexshd/fattail"
)

// Report is the serializable outcome of a Runner.Run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Config    Config        `json:"config"`

	Survival       []SurvivalResult       `json:"survival"`
	Tails          []TailResult           `json:"tails"`
	Dispersion     []DispersionResult     `json:"dispersion"`
	MaxToSum       []MaxToSumResult       `json:"max_to_sum"`
	Ergodicity     ErgodicityResult       `json:"ergodicity"`
	Scale          []ScaleResult          `json:"scale"`
	Characteristic []CharacteristicResult `json:"characteristic"`
	Volatility     []VolatilityResult     `json:"volatility"`
	Exposures      []ExposureResult       `json:"exposures"`
	Convergence    []Level                `json:"convergence"`
}

// SurvivalResult summarizes a survival curve by where it sits far out.
type SurvivalResult struct {
	Family string `json:"family"`
	N      int    `json:"n"`
	// Survival probability at the 1000th largest, 100th largest and 10th
	// largest value, as (value, probability) pairs.
	Tail []fattail.SurvivalPoint `json:"tail"`
	Max  float64                 `json:"max"`
}

// TailResult is one tail-exponent round trip.
type TailResult struct {
	TrueAlpha   float64              `json:"true_alpha"`
	Estimate    fattail.TailEstimate `json:"estimate"`
	Regime      fattail.TailRegime   `json:"regime"`
	Trustworthy bool                 `json:"trustworthy"`
	ZipfSlope   float64              `json:"zipf_slope"` // ≈ -1/α
}

// DispersionResult compares the stability of running STD and MAD over the
// trailing window of the trace. Variation is (max - min) / mean.
type DispersionResult struct {
	Family       string  `json:"family"`
	FinalStd     float64 `json:"final_std"`
	FinalMAD     float64 `json:"final_mad"`
	StdVariation float64 `json:"std_variation"`
	MADVariation float64 `json:"mad_variation"`
}

// MaxToSumResult is the final max-to-sum ratio of a sample.
type MaxToSumResult struct {
	Family string  `json:"family"`
	Final  float64 `json:"final"`
	Peak   float64 `json:"peak_second_half"` // Largest ratio over the second half of the sample
}

// ErgodicityResult compares the closed-form growth rates with a simulation.
type ErgodicityResult struct {
	EnsembleGrowthRate    float64 `json:"ensemble_growth_rate"`
	TimeAverageGrowthRate float64 `json:"time_average_growth_rate"`
	NonErgodic            bool    `json:"non_ergodic"`
	InitialWealth         float64 `json:"initial_wealth"`
	FinalEnsembleAverage  float64 `json:"final_ensemble_average"`
	FinalTypical          float64 `json:"final_typical"`
	RuinFraction          float64 `json:"ruin_fraction"`
}

// ScaleResult summarizes a conditional exceedance profile.
type ScaleResult struct {
	Family    string                               `json:"family"`
	Expected  float64                              `json:"expected"` // k^(-α) for the power law, 0 otherwise
	MeanRatio float64                              `json:"mean_ratio"`
	StdRatio  float64                              `json:"std_ratio"`
	Profile   fattail.ConditionalExceedanceProfile `json:"profile"`
}

// CharacteristicResult compares a numeric characteristic function with its
// closed form.
type CharacteristicResult struct {
	Family   string                       `json:"family"`
	Mass     float64                      `json:"mass"`      // Probability captured by the grid
	MaxError float64                      `json:"max_error"` // max |Re φ - closed form|
	Sample   fattail.CharacteristicSample `json:"sample"`
}

// VolatilityResult is the spread of rolling volatility across windows.
type VolatilityResult struct {
	Family string  `json:"family"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Spread float64 `json:"spread"` // Max / Min
}

// ExposureResult evaluates a payoff profile in a crash.
type ExposureResult struct {
	Kind      fattail.ExposureKind `json:"kind"`
	Crash     float64              `json:"crash"`     // Payoff at the worst market move
	Asymmetry float64              `json:"asymmetry"` // Payoff(m) + Payoff(-m) at that move
	Mean      float64              `json:"mean"`      // Average payoff over the simulated moves
}

// WriteJSON writes the report, indented, to path.
func (r Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

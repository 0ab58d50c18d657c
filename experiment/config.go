// Package experiment runs the fat-tail experiments end to end: it draws
// samples from a fattail.SampleSource, feeds them through every estimator and
// collects the results into a Report.
//
// Configuration is YAML. Missing fields take the defaults declared in the
// struct tags, FATTAIL_* environment variables override the file, and the
// result is validated before anything runs.
package experiment

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/alexshd/fattail"
	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the parameters of every experiment.
type Config struct {
	Seed     uint64 `yaml:"seed" json:"seed" default:"42" env:"FATTAIL_SEED"`
	LogLevel string `yaml:"log_level" json:"log_level" default:"info" env:"FATTAIL_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Samples  int    `yaml:"samples" json:"samples" default:"100000" env:"FATTAIL_SAMPLES" validate:"gte=1000"`
	Workers  int    `yaml:"workers" json:"workers" env:"FATTAIL_WORKERS" validate:"gte=0"`

	Tail           TailConfig           `yaml:"tail" json:"tail"`
	Dispersion     DispersionConfig     `yaml:"dispersion" json:"dispersion"`
	Scale          ScaleSettings        `yaml:"scale" json:"scale"`
	Ergodicity     ErgodicityConfig     `yaml:"ergodicity" json:"ergodicity"`
	Characteristic CharacteristicConfig `yaml:"characteristic" json:"characteristic"`
	Volatility     VolatilityConfig     `yaml:"volatility" json:"volatility"`
	Convergence    ConvergenceConfig    `yaml:"convergence" json:"convergence"`
}

// TailConfig drives the tail-exponent round trip and the Zipf check.
type TailConfig struct {
	Alphas   []float64 `yaml:"alphas" json:"alphas" default:"[1.16, 1.5, 2.5, 3]" validate:"min=1,dive,gt=0"`
	Quantile float64   `yaml:"quantile" json:"quantile" default:"0.9" validate:"gt=0,lt=1"`
}

// DispersionConfig drives the STD vs MAD comparison.
type DispersionConfig struct {
	Alpha float64 `yaml:"alpha" json:"alpha" default:"1.5" validate:"gt=1"`
	// Trailing fraction of the trace whose variability is reported
	Window float64 `yaml:"window" json:"window" default:"0.1" validate:"gt=0,lte=1"`
}

// ScaleSettings drives the scale-invariance scan.
type ScaleSettings struct {
	Alpha          float64 `yaml:"alpha" json:"alpha" default:"1.5" validate:"gt=0"`
	Factor         float64 `yaml:"factor" json:"factor" default:"2" validate:"gt=1"`
	LowPercentile  float64 `yaml:"low_percentile" json:"low_percentile" default:"10" validate:"gt=0,lt=100"`
	HighPercentile float64 `yaml:"high_percentile" json:"high_percentile" default:"99" validate:"gt=0,lt=100,gtfield=LowPercentile"`
	Steps          int     `yaml:"steps" json:"steps" default:"50" validate:"gte=1"`
	MinSupport     int     `yaml:"min_support" json:"min_support" default:"10" validate:"gte=1"`
}

// OutcomeConfig is one branch of the multiplicative gamble.
type OutcomeConfig struct {
	Label       string  `yaml:"label" json:"label" validate:"required"`
	Probability float64 `yaml:"probability" json:"probability" validate:"gte=0,lte=1"`
	Multiplier  float64 `yaml:"multiplier" json:"multiplier" validate:"gt=0"`
}

// ErgodicityConfig drives the wealth simulation. An empty outcome list means
// the +50% / -40% coin game.
type ErgodicityConfig struct {
	Population    int             `yaml:"population" json:"population" default:"1000" validate:"gte=1"`
	Horizon       int             `yaml:"horizon" json:"horizon" default:"100" validate:"gte=1"`
	InitialWealth float64         `yaml:"initial_wealth" json:"initial_wealth" default:"100" validate:"gt=0"`
	RuinThreshold float64         `yaml:"ruin_threshold" json:"ruin_threshold" default:"1" validate:"gte=0"`
	Outcomes      []OutcomeConfig `yaml:"outcomes" json:"outcomes" validate:"dive"`
}

// CharacteristicConfig drives the numeric characteristic function.
type CharacteristicConfig struct {
	GridMin     float64 `yaml:"grid_min" json:"grid_min" default:"-20"`
	GridMax     float64 `yaml:"grid_max" json:"grid_max" default:"20" validate:"gtfield=GridMin"`
	GridPoints  int     `yaml:"grid_points" json:"grid_points" default:"2001" validate:"gte=2"`
	MaxFreq     float64 `yaml:"max_freq" json:"max_freq" default:"5" validate:"gt=0"`
	Frequencies int     `yaml:"frequencies" json:"frequencies" default:"101" validate:"gte=2"`
}

// VolatilityConfig drives the rolling-volatility masquerade.
type VolatilityConfig struct {
	Alpha  float64 `yaml:"alpha" json:"alpha" default:"1.5" validate:"gt=0"`
	Window int     `yaml:"window" json:"window" default:"250" validate:"gte=2"`
}

// ConvergenceConfig drives the sample-size sweep.
type ConvergenceConfig struct {
	Family string             `yaml:"family" json:"family" default:"pareto" validate:"required"` // one of fattail.Families()
	Params map[string]float64 `yaml:"params" json:"params"`
	Sizes  []int              `yaml:"sizes" json:"sizes" default:"[1000, 10000, 100000, 1000000]" validate:"min=1,dive,gte=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		// Only reachable if a default tag above is malformed.
		panic(fmt.Sprintf("experiment: bad default tags: %v", err))
	}
	return cfg
}

// Load reads a YAML config file, then applies defaults, environment
// overrides and validation. A missing file is not an error: the defaults
// are used.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes (possibly empty).
//
// Zero-valued fields are replaced by their defaults, so an explicit zero
// (e.g. seed: 0) cannot be expressed in the file; use the environment.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", fattail.ErrInvalidConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the cross-field rules the tags
// cannot express. Failures wrap fattail.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", fattail.ErrInvalidConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", fattail.ErrInvalidConfiguration, err)
	}

	if len(c.Ergodicity.Outcomes) > 0 {
		if err := c.Ergodicity.Distribution().Validate(); err != nil {
			return fmt.Errorf("ergodicity: %w", err)
		}
	}
	if !slices.Contains(fattail.Families(), c.Convergence.Family) {
		return fmt.Errorf("%w: convergence family %q (known: %s)",
			fattail.ErrInvalidConfiguration, c.Convergence.Family, strings.Join(fattail.Families(), ", "))
	}
	if c.Volatility.Window > c.Samples {
		return fmt.Errorf("%w: volatility window %d exceeds sample count %d",
			fattail.ErrInvalidConfiguration, c.Volatility.Window, c.Samples)
	}
	return nil
}

// Level maps LogLevel onto a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Distribution converts the configured outcomes, or returns the coin game
// when none are configured.
func (e ErgodicityConfig) Distribution() fattail.MultiplierDistribution {
	if len(e.Outcomes) == 0 {
		return fattail.CoinFlipGame()
	}
	dist := make(fattail.MultiplierDistribution, len(e.Outcomes))
	for i, o := range e.Outcomes {
		dist[i] = fattail.Outcome{Label: o.Label, Probability: o.Probability, Multiplier: o.Multiplier}
	}
	return dist
}

// ScaleConfig converts the settings into the core scan configuration.
func (s ScaleSettings) ScaleConfig() fattail.ScaleConfig {
	return fattail.ScaleConfig{
		Factor:         s.Factor,
		LowPercentile:  s.LowPercentile,
		HighPercentile: s.HighPercentile,
		Steps:          s.Steps,
		MinSupport:     s.MinSupport,
	}
}

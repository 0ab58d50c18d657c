package fattail

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution families understood by GonumSource and Density.
const (
	FamilyPareto       = "pareto"       // xm, alpha: P(X > x) = (x/xm)^-alpha
	FamilyNormal       = "normal"       // mu, sigma
	FamilyHalfNormal   = "halfnormal"   // sigma: |N(0, sigma)|
	FamilyStudentT     = "studentt"     // nu, mu, sigma
	FamilyCauchy       = "cauchy"       // x0, gamma
	FamilyLogPareto    = "logpareto"    // alpha, scale: exp(Y/scale), Y ~ Pareto(1, alpha)
	FamilySignedPareto = "signedpareto" // xm, alpha: Pareto with a fair random sign
)

// SampleRequest asks a SampleSource for Count draws from a named family.
type SampleRequest struct {
	Family string             `json:"family" yaml:"family" validate:"required"` // one of Families()
	Params map[string]float64 `json:"params,omitempty" yaml:"params"`
	Count  int                `json:"count" yaml:"count" validate:"gt=0"`
	Seed   uint64             `json:"seed" yaml:"seed"`
}

// SampleSource supplies samples. The core never draws randomness itself
// except through an injected source.
type SampleSource interface {
	Draw(req SampleRequest) (Sample, error)
}

// GonumSource draws samples with gonum's distuv, one PCG stream per request.
// Identical requests produce identical samples.
type GonumSource struct{}

var validate = validator.New(validator.WithRequiredStructEnabled())

// family describes how to build a draw function from named parameters.
type family struct {
	defaults map[string]float64
	check    func(p map[string]float64) error
	sampler  func(p map[string]float64, src rand.Source) func() float64
	density  func(p map[string]float64) DensityFunc // nil if Density is unsupported
}

func positive(names ...string) func(p map[string]float64) error {
	return func(p map[string]float64) error {
		for _, name := range names {
			if v := p[name]; !(v > 0) || math.IsInf(v, 1) {
				return fmt.Errorf("parameter %s = %v must be positive", name, v)
			}
		}
		return nil
	}
}

var families = map[string]family{
	FamilyPareto: {
		defaults: map[string]float64{"xm": 1, "alpha": 1.5},
		check:    positive("xm", "alpha"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			return distuv.Pareto{Xm: p["xm"], Alpha: p["alpha"], Src: src}.Rand
		},
		density: func(p map[string]float64) DensityFunc {
			return distuv.Pareto{Xm: p["xm"], Alpha: p["alpha"]}.Prob
		},
	},
	FamilyNormal: {
		defaults: map[string]float64{"mu": 0, "sigma": 1},
		check:    positive("sigma"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			return distuv.Normal{Mu: p["mu"], Sigma: p["sigma"], Src: src}.Rand
		},
		density: func(p map[string]float64) DensityFunc {
			return distuv.Normal{Mu: p["mu"], Sigma: p["sigma"]}.Prob
		},
	},
	FamilyHalfNormal: {
		defaults: map[string]float64{"sigma": 1},
		check:    positive("sigma"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			n := distuv.Normal{Mu: 0, Sigma: p["sigma"], Src: src}
			return func() float64 { return math.Abs(n.Rand()) }
		},
		density: func(p map[string]float64) DensityFunc {
			n := distuv.Normal{Mu: 0, Sigma: p["sigma"]}
			return func(x float64) float64 {
				if x < 0 {
					return 0
				}
				return 2 * n.Prob(x)
			}
		},
	},
	FamilyStudentT: {
		defaults: map[string]float64{"nu": 5, "mu": 0, "sigma": 1},
		check:    positive("nu", "sigma"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			return distuv.StudentsT{Mu: p["mu"], Sigma: p["sigma"], Nu: p["nu"], Src: src}.Rand
		},
		density: func(p map[string]float64) DensityFunc {
			return distuv.StudentsT{Mu: p["mu"], Sigma: p["sigma"], Nu: p["nu"]}.Prob
		},
	},
	// Cauchy is Student-t with one degree of freedom.
	FamilyCauchy: {
		defaults: map[string]float64{"x0": 0, "gamma": 1},
		check:    positive("gamma"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			return distuv.StudentsT{Mu: p["x0"], Sigma: p["gamma"], Nu: 1, Src: src}.Rand
		},
		density: func(p map[string]float64) DensityFunc {
			return distuv.StudentsT{Mu: p["x0"], Sigma: p["gamma"], Nu: 1}.Prob
		},
	},
	// Super fat tail: the log of the variable is itself power-law, so the
	// survival curve bends upward on a log-log plot instead of being straight.
	FamilyLogPareto: {
		defaults: map[string]float64{"alpha": 1.5, "scale": 10},
		check:    positive("alpha", "scale"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			y := distuv.Pareto{Xm: 1, Alpha: p["alpha"], Src: src}
			scale := p["scale"]
			return func() float64 { return math.Exp(y.Rand() / scale) }
		},
	},
	FamilySignedPareto: {
		defaults: map[string]float64{"xm": 1, "alpha": 1.5},
		check:    positive("xm", "alpha"),
		sampler: func(p map[string]float64, src rand.Source) func() float64 {
			mag := distuv.Pareto{Xm: p["xm"], Alpha: p["alpha"], Src: src}
			sign := rand.New(src)
			return func() float64 {
				x := mag.Rand()
				if sign.IntN(2) == 0 {
					return -x
				}
				return x
			}
		},
	},
}

// Families lists the supported family names, sorted.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve merges request parameters over the family defaults and checks them.
func resolve(name string, params map[string]float64) (family, map[string]float64, error) {
	fam, ok := families[name]
	if !ok {
		return family{}, nil, fmt.Errorf("%w: unknown family %q (known: %s)",
			ErrInvalidConfiguration, name, strings.Join(Families(), ", "))
	}

	merged := make(map[string]float64, len(fam.defaults))
	for k, v := range fam.defaults {
		merged[k] = v
	}
	for k, v := range params {
		if _, known := fam.defaults[k]; !known {
			return family{}, nil, fmt.Errorf("%w: family %s has no parameter %q", ErrInvalidConfiguration, name, k)
		}
		if math.IsNaN(v) {
			return family{}, nil, fmt.Errorf("%w: family %s parameter %s is NaN", ErrInvalidConfiguration, name, k)
		}
		merged[k] = v
	}

	if err := fam.check(merged); err != nil {
		return family{}, nil, fmt.Errorf("%w: family %s: %v", ErrInvalidConfiguration, name, err)
	}
	return fam, merged, nil
}

// Draw returns req.Count draws from the requested family.
func (GonumSource) Draw(req SampleRequest) (Sample, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("%w: sample request field %s failed %q (value %v)",
				ErrInvalidConfiguration, fe.Field(), fe.Tag(), fe.Value())
		}
		return nil, fmt.Errorf("%w: sample request: %v", ErrInvalidConfiguration, err)
	}

	fam, params, err := resolve(req.Family, req.Params)
	if err != nil {
		return nil, err
	}

	src := rand.NewPCG(req.Seed, splitMix64(req.Seed))
	next := fam.sampler(params, src)

	out := make(Sample, req.Count)
	for i := range out {
		out[i] = next()
	}
	return out, nil
}

// Density returns the probability density of a family, for building a DensityGrid.
// Supported: pareto, normal, halfnormal, studentt, cauchy.
func Density(name string, params map[string]float64) (DensityFunc, error) {
	fam, merged, err := resolve(name, params)
	if err != nil {
		return nil, err
	}
	if fam.density == nil {
		return nil, fmt.Errorf("%w: family %s has no closed-form density", ErrInvalidConfiguration, name)
	}
	return fam.density(merged), nil
}

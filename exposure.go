package fattail

import "fmt"

// ExposureKind classifies the shape of a payoff.
type ExposureKind string

const (
	ExposureLinear  ExposureKind = "LINEAR"  // P&L = m (holding the asset)
	ExposureConcave ExposureKind = "CONCAVE" // P&L = m - c·m² (fragile: short volatility, leverage)
	ExposureConvex  ExposureKind = "CONVEX"  // P&L = -cost + c·m² (antifragile: long options)
)

// Exposure is a payoff profile as a function of a market move m.
//
// Under fat tails the shape of the exposure matters more than any forecast
// of m: a concave book loses more than linearly in a crash, a convex one
// bleeds a small premium in calm markets and gains in both tails.
type Exposure struct {
	Kind      ExposureKind `json:"kind"`
	Curvature float64      `json:"curvature"` // c, ignored for LINEAR
	Cost      float64      `json:"cost"`      // Carry cost, CONVEX only
}

// DefaultExposures returns the three reference profiles (c = 5, cost = 0.05).
func DefaultExposures() []Exposure {
	return []Exposure{
		{Kind: ExposureLinear},
		{Kind: ExposureConcave, Curvature: 5},
		{Kind: ExposureConvex, Curvature: 5, Cost: 0.05},
	}
}

// Validate checks the kind is known and the curvature non-negative.
func (e Exposure) Validate() error {
	switch e.Kind {
	case ExposureLinear, ExposureConcave, ExposureConvex:
	default:
		return fmt.Errorf("%w: unknown exposure kind %q", ErrInvalidConfiguration, e.Kind)
	}
	if e.Curvature < 0 {
		return fmt.Errorf("%w: curvature %v must be ≥ 0", ErrInvalidConfiguration, e.Curvature)
	}
	return nil
}

// Payoff returns the P&L for a market move m (e.g. -0.3 for a 30% crash).
func (e Exposure) Payoff(m float64) float64 {
	switch e.Kind {
	case ExposureConcave:
		return m - e.Curvature*m*m
	case ExposureConvex:
		return -e.Cost + e.Curvature*m*m
	default:
		return m
	}
}

// Profile evaluates Payoff at every move.
func (e Exposure) Profile(moves []float64) ([]float64, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(moves))
	for i, m := range moves {
		out[i] = e.Payoff(m)
	}
	return out, nil
}

// Asymmetry returns Payoff(m) + Payoff(-m): zero for a linear book, negative
// for a fragile one, positive for an antifragile one once c·m² exceeds the cost.
func (e Exposure) Asymmetry(m float64) float64 {
	return e.Payoff(m) + e.Payoff(-m)
}

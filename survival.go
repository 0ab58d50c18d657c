package fattail

// SurvivalPoint is one step of an empirical survival function.
type SurvivalPoint struct {
	Value       float64 `json:"value"`
	Probability float64 `json:"survival_probability"`
}

// SurvivalCurve is an empirical survival function P(X > x), values ascending.
type SurvivalCurve []SurvivalPoint

// Survival builds the empirical survival curve of a sample.
//
// After sorting ascending, rank i (1-indexed) gets
//
//	S(x_i) = 1 - (i-1)/n
//
// so the smallest value has probability exactly 1 and the largest 1/n.
// Equal values keep distinct ranks and therefore distinct probabilities;
// that is the usual approximation of an empirical CDF with duplicates.
//
// On a log-log plot the curve of a power law is a straight line of slope -α,
// while a Gaussian bends down and falls off a cliff. Non-positive values are
// accepted here but make no sense on such a plot; filter with Sample.Positive.
func Survival(s Sample) (SurvivalCurve, error) {
	if len(s) == 0 {
		return nil, ErrEmptySample
	}
	return survivalSorted(s.Sorted()), nil
}

// survivalSorted applies the rank rule to an already ascending slice.
// Every consumer of survival probabilities goes through here so the tie and
// edge handling is identical everywhere.
func survivalSorted(sorted []float64) SurvivalCurve {
	n := float64(len(sorted))
	curve := make(SurvivalCurve, len(sorted))
	for i, x := range sorted {
		curve[i] = SurvivalPoint{
			Value:       x,
			Probability: 1 - float64(i)/n,
		}
	}
	return curve
}

// Values returns the x coordinates of the curve.
func (c SurvivalCurve) Values() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Value
	}
	return out
}

// Probabilities returns the survival probabilities of the curve.
func (c SurvivalCurve) Probabilities() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Probability
	}
	return out
}

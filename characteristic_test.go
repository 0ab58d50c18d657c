package fattail

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// densityGrid builds the [-20, 20] grid at step 0.01 for a named family.
func densityGrid(t *testing.T, family string) DensityGrid {
	t.Helper()

	pdf, err := Density(family, nil)
	if err != nil {
		t.Fatalf("Density(%s) failed: %v", family, err)
	}
	g, err := NewDensityGrid(-20, 20, 4001, pdf)
	if err != nil {
		t.Fatalf("NewDensityGrid failed: %v", err)
	}
	return g
}

func frequencies() []float64 {
	return floats.Span(make([]float64, 201), -5, 5)
}

// TestCharacteristicFunction_Gaussian compares with e^{-t²/2}.
func TestCharacteristicFunction_Gaussian(t *testing.T) {
	g := densityGrid(t, FamilyNormal)

	if math.Abs(g.Step-0.01) > 1e-12 {
		t.Fatalf("Step = %v, want 0.01", g.Step)
	}

	phi, err := CharacteristicFunction(g, frequencies())
	if err != nil {
		t.Fatalf("CharacteristicFunction failed: %v", err)
	}

	var worst float64
	for _, p := range phi {
		want := math.Exp(-p.Frequency * p.Frequency / 2)
		worst = math.Max(worst, math.Abs(p.Real-want))
		if math.Abs(p.Imag) > 1e-9 {
			t.Errorf("t=%.2f: imaginary part %v of a symmetric density", p.Frequency, p.Imag)
		}
	}
	if worst > 0.01 {
		t.Errorf("Max |Re φ(t) - e^{-t²/2}| = %.6f > 0.01", worst)
	}

	t.Logf("✓ Gaussian φ(t): max error %.2e over %d frequencies", worst, len(phi))
}

// TestCharacteristicFunction_Cauchy compares with e^{-|t|} and accounts for
// the mass the grid truncates.
func TestCharacteristicFunction_Cauchy(t *testing.T) {
	g := densityGrid(t, FamilyCauchy)

	phi, err := CharacteristicFunction(g, frequencies())
	if err != nil {
		t.Fatalf("CharacteristicFunction failed: %v", err)
	}

	// Near t = 0 the result is the grid mass, not 1
	missing := 1 - g.Mass()
	if want := 2 / math.Pi * math.Atan(1.0/20); math.Abs(missing-want) > 0.002 {
		t.Errorf("Missing mass %.4f, want %.4f", missing, want)
	}

	var worst float64
	for _, p := range phi {
		if p.Frequency == 0 && math.Abs(p.Real-g.Mass()) > 1e-12 {
			t.Errorf("Re φ(0) = %v, want grid mass %v", p.Real, g.Mass())
		}
		if math.Abs(p.Imag) > 1e-9 {
			t.Errorf("t=%.2f: imaginary part %v of a symmetric density", p.Frequency, p.Imag)
		}
		if math.Abs(p.Frequency) < 0.25 {
			continue
		}
		worst = math.Max(worst, math.Abs(p.Real-math.Exp(-math.Abs(p.Frequency))))
	}
	if worst > 0.02 {
		t.Errorf("Max |Re φ(t) - e^{-|t|}| = %.6f > 0.02 for |t| ≥ 0.25", worst)
	}

	t.Logf("✓ Cauchy φ(t): max error %.2e for |t| ≥ 0.25, truncated mass %.4f", worst, missing)
}

// TestCharacteristicFunction_KinkAtZero contrasts the curvature at t = 0.
func TestCharacteristicFunction_KinkAtZero(t *testing.T) {
	freqs := []float64{-0.1, 0, 0.1}

	gauss, err := CharacteristicFunction(densityGrid(t, FamilyNormal), freqs)
	if err != nil {
		t.Fatalf("CharacteristicFunction failed: %v", err)
	}
	cauchy, err := CharacteristicFunction(densityGrid(t, FamilyCauchy), freqs)
	if err != nil {
		t.Fatalf("CharacteristicFunction failed: %v", err)
	}

	// Drop from t=0 to t=0.1: quadratic (≈0.005) vs linear (≈0.1)
	gaussDrop := gauss[1].Real - gauss[2].Real
	cauchyDrop := cauchy[1].Real - cauchy[2].Real
	if cauchyDrop < 5*gaussDrop {
		t.Errorf("Cauchy should drop linearly at 0: Δ = %.4f vs Gaussian %.4f", cauchyDrop, gaussDrop)
	}
	if math.Abs(gauss[0].Modulus()-gauss[2].Modulus()) > 1e-12 {
		t.Errorf("|φ| not symmetric: %v vs %v", gauss[0].Modulus(), gauss[2].Modulus())
	}
}

// TestDensityGrid_Errors covers malformed grids.
func TestDensityGrid_Errors(t *testing.T) {
	pdf, err := Density(FamilyNormal, nil)
	if err != nil {
		t.Fatalf("Density failed: %v", err)
	}

	if _, err := NewDensityGrid(-1, 1, 1, pdf); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("single point: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := NewDensityGrid(1, 1, 10, pdf); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("empty bounds: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := NewDensityGrid(-1, 1, 10, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("nil pdf: expected ErrInvalidConfiguration, got %v", err)
	}

	tests := []struct {
		name string
		grid DensityGrid
		want error
	}{
		{"Empty", DensityGrid{Step: 0.1}, ErrEmptySample},
		{"Length mismatch", DensityGrid{X: []float64{0, 1}, Density: []float64{1}, Step: 1}, ErrInvalidConfiguration},
		{"Zero step", DensityGrid{X: []float64{0, 1}, Density: []float64{1, 1}}, ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CharacteristicFunction(tt.grid, []float64{1}); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

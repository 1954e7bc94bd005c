package constellation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

// Prior selects the input distribution family.
type Prior int

const (
	Uniform Prior = iota
	MaxwellBoltzmann
)

// String returns the conventional name of the prior.
func (p Prior) String() string {
	switch p {
	case Uniform:
		return "uniform"
	case MaxwellBoltzmann:
		return "maxwell_boltzmann"
	}
	return fmt.Sprintf("Prior(%d)", int(p))
}

// ParsePrior maps a prior name to its Prior.
func ParsePrior(s string) (Prior, error) {
	switch s {
	case "uniform":
		return Uniform, nil
	case "maxwell_boltzmann", "mb":
		return MaxwellBoltzmann, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrPrior, s)
}

var (
	ErrPrior  = errors.New("constellation: unknown prior")
	ErrBeta   = errors.New("constellation: beta must be non-negative")
	ErrCustom = errors.New("constellation: invalid custom points")
)

// A Constellation is a unit-average-power alphabet with its prior.
// Invariants: sum_i Prob_i = 1 and sum_i Prob_i |Points_i|^2 = 1.
type Constellation struct {
	Points []complex128
	Prob   []float64

	// Scale is the factor s applied to the raw points to reach unit
	// average power, and Iters the number of fixed-point iterations the
	// Maxwell-Boltzmann coupling needed (zero for uniform priors).
	Scale float64
	Iters int
}

// Fixed-point stopping criteria for the Maxwell-Boltzmann coupling. The
// absolute tolerance covers moderate beta, the relative tolerance very small
// scales, and exact stagnation catches machine-epsilon plateaus at large
// beta.
const (
	fixedPointTolAbs   = 1e-14
	fixedPointTolRel   = 1e-12
	fixedPointMaxIters = 1000
)

// New assigns the prior to the raw alphabet points and rescales to unit
// average power.
func New(points []complex128, prior Prior, beta float64) (*Constellation, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: m=%d", ErrSize, len(points))
	}
	switch prior {
	case Uniform:
		m := len(points)
		q := make([]float64, m)
		for i := range q {
			q[i] = 1 / float64(m)
		}
		return normalized(points, q), nil
	case MaxwellBoltzmann:
		if beta < 0 || math.IsNaN(beta) {
			return nil, fmt.Errorf("%w: beta=%v", ErrBeta, beta)
		}
		return boltzmann(points, beta), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrPrior, prior)
}

// NewCustom builds a constellation from explicit point coordinates and
// probabilities. The probabilities are renormalised to sum 1 and the points
// rescaled to unit average power under them.
func NewCustom(re, im, prob []float64) (*Constellation, error) {
	m := len(re)
	if m < 2 {
		return nil, fmt.Errorf("%w: m=%d", ErrSize, m)
	}
	if len(im) != m || len(prob) != m {
		return nil, fmt.Errorf("%w: length mismatch re=%d im=%d prob=%d", ErrCustom, m, len(im), len(prob))
	}
	q := make([]float64, m)
	points := make([]complex128, m)
	for i := 0; i < m; i++ {
		if prob[i] < 0 || math.IsNaN(prob[i]) || math.IsInf(prob[i], 0) {
			return nil, fmt.Errorf("%w: probability %v at index %d", ErrCustom, prob[i], i)
		}
		if math.IsNaN(re[i]) || math.IsInf(re[i], 0) || math.IsNaN(im[i]) || math.IsInf(im[i], 0) {
			return nil, fmt.Errorf("%w: non-finite coordinate at index %d", ErrCustom, i)
		}
		q[i] = prob[i]
		points[i] = complex(re[i], im[i])
	}
	total := floats.Sum(q)
	if total <= 0 {
		return nil, fmt.Errorf("%w: probabilities sum to %v", ErrCustom, total)
	}
	floats.Scale(1/total, q)
	c := normalized(points, q)
	if math.IsInf(c.Scale, 0) {
		return nil, fmt.Errorf("%w: zero average power", ErrCustom)
	}
	return c, nil
}

// normalized rescales points by s = 1/sqrt(E[|X|^2]) under the given prior.
func normalized(points []complex128, q []float64) *Constellation {
	var e float64
	for i, p := range points {
		e += q[i] * (real(p)*real(p) + imag(p)*imag(p))
	}
	s := 1 / math.Sqrt(e)
	scaled := make([]complex128, len(points))
	for i, p := range points {
		scaled[i] = complex(s, 0) * p
	}
	return &Constellation{Points: scaled, Prob: q, Scale: s}
}

// boltzmann solves the coupled prior/power fixed point: the prior depends on
// the scaled point energies while the scale depends on the prior. Iterates
// on the scalar s with Q_i ∝ exp(-beta s^2 |p_i|^2) until the scale
// stabilises.
func boltzmann(points []complex128, beta float64) *Constellation {
	m := len(points)
	pow := make([]float64, m)
	for i, p := range points {
		pow[i] = real(p)*real(p) + imag(p)*imag(p)
	}
	q := make([]float64, m)
	s := 1.0
	var iters int
	converged := false
	for iters = 1; iters <= fixedPointMaxIters; iters++ {
		for i, v := range pow {
			q[i] = math.Exp(-beta * s * s * v)
		}
		floats.Scale(1/floats.Sum(q), q)
		e := floats.Dot(q, pow)
		sNew := 1 / math.Sqrt(e)
		if sNew == s ||
			math.Abs(sNew-s) < fixedPointTolAbs ||
			math.Abs(sNew-s)/s < fixedPointTolRel {
			s = sNew
			converged = true
			break
		}
		s = sNew
	}
	if !converged {
		logger.Logger().Warn().
			Float64("beta", beta).
			Float64("scale", s).
			Int("iters", fixedPointMaxIters).
			Msg("Maxwell-Boltzmann power fixed point did not converge, using last scale")
		iters = fixedPointMaxIters
	}

	// Terminal step: fix the alphabet at the converged scale and recompute
	// the prior from the scaled energies.
	scaled := make([]complex128, m)
	for i, p := range points {
		scaled[i] = complex(s, 0) * p
	}
	for i, p := range scaled {
		q[i] = math.Exp(-beta * (real(p)*real(p) + imag(p)*imag(p)))
	}
	floats.Scale(1/floats.Sum(q), q)
	return &Constellation{Points: scaled, Prob: q, Scale: s, Iters: iters}
}

// AveragePower returns sum_i Prob_i |Points_i|^2.
func (c *Constellation) AveragePower() float64 {
	var e float64
	for i, p := range c.Points {
		e += c.Prob[i] * (real(p)*real(p) + imag(p)*imag(p))
	}
	return e
}

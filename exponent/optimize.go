package exponent

import (
	"context"
	"math"
)

// Optimiser defaults.
const (
	// DefaultMaxIters bounds the gradient iterations per optimisation.
	DefaultMaxIters = 20
	// DefaultThreshold is the gradient convergence tolerance.
	DefaultThreshold = 1e-6

	curvatureStep   = 1e-6
	maxLearningRate = 100
	fallbackRate    = 0.01
)

// optimum carries the optimiser outputs and the boundary side products.
type optimum struct {
	rho       float64
	e0        float64
	rhoInterp float64

	mutualInfo float64
	cutoffRate float64

	iters     int
	converged bool
}

// optimize maximises g(rho) = E0(rho) - rho*R over [0,1]: boundary
// evaluations, cubic warm start, then projected gradient ascent with a
// curvature-seeded step. The boundary evaluations double as the side
// outputs I(X;Y) = dE0(0) and R0 = E0(1).
func optimize(ctx context.Context, ev *evaluator, r float64, maxIters int, eps float64) (*optimum, error) {
	e00, g0 := ev.eval(0)
	if e00 == Sentinel {
		return nil, &errEval{rho: 0}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Rho: 0, Err: err}
	}
	e01, g1 := ev.eval(1)
	if e01 == Sentinel {
		return nil, &errEval{rho: 1}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Rho: 1, Err: err}
	}

	opt := &optimum{mutualInfo: g0, cutoffRate: e01}
	opt.rhoInterp = cubicArgmax(e00, e01-r, g0-r, g1-r)
	if opt.rhoInterp == 0 || opt.rhoInterp == 1 {
		opt.rho = opt.rhoInterp
		opt.e0 = e00
		if opt.rhoInterp == 1 {
			opt.e0 = e01
		}
		opt.converged = true
		return opt, nil
	}

	// Learning rate from the local curvature of E0' at the warm start; the
	// concave objective makes 1/|E0''| a near-Newton step.
	e0a, ga := ev.eval(opt.rhoInterp)
	if e0a == Sentinel {
		return nil, &errEval{rho: opt.rhoInterp}
	}
	e0b, gb := ev.eval(opt.rhoInterp + curvatureStep)
	if e0b == Sentinel {
		return nil, &errEval{rho: opt.rhoInterp + curvatureStep}
	}
	lr := 1 / math.Abs((gb-ga)/curvatureStep)
	if math.IsNaN(lr) || math.IsInf(lr, 0) || lr > maxLearningRate {
		lr = fallbackRate
	}

	rho, e0, grad := opt.rhoInterp, e0a, ga
	for it := 0; it < maxIters; it++ {
		if err := ctx.Err(); err != nil {
			return nil, &CancelledError{Rho: rho, Iter: it, Err: err}
		}
		if math.Abs(grad-r) <= eps {
			opt.converged = true
			break
		}
		next := rho + lr*(grad-r)
		if next <= 0 {
			rho, e0 = 0, e00
			opt.converged = true
			break
		}
		if next >= 1 {
			rho, e0 = 1, e01
			opt.converged = true
			break
		}
		rho = next
		opt.iters = it + 1
		e0, grad = ev.eval(rho)
		if e0 == Sentinel {
			return nil, &errEval{rho: rho}
		}
	}
	opt.rho = rho
	opt.e0 = e0
	return opt, nil
}

// cubicArgmax maximises over [0,1] the Hermite cubic with values f0, f1 and
// slopes d0, d1 at the endpoints, evaluating the endpoints and the interior
// critical points. Interior candidates win ties against the boundary so the
// descent that follows starts where the gradient is informative.
func cubicArgmax(f0, f1, d0, d1 float64) float64 {
	b := d0
	c2 := 3*(f1-f0) - 2*d0 - d1
	c3 := 2*(f0-f1) + d0 + d1
	val := func(t float64) float64 { return f0 + t*(b+t*(c2+t*c3)) }

	best, bestVal := 0.0, f0
	if f1 > bestVal {
		best, bestVal = 1, f1
	}
	for _, t := range quadraticRoots(3*c3, 2*c2, b) {
		if t <= 0 || t >= 1 || math.IsNaN(t) {
			continue
		}
		if v := val(t); v >= bestVal {
			best, bestVal = t, v
		}
	}
	return best
}

// quadraticRoots returns the real roots of a*t^2 + b*t + c, using the
// cancellation-free form of the quadratic formula.
func quadraticRoots(a, b, c float64) []float64 {
	if a == 0 {
		if b == 0 {
			return nil
		}
		return []float64{-c / b}
	}
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	roots := []float64{q / a}
	if q != 0 {
		roots = append(roots, c/q)
	}
	return roots
}

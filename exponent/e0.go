package exponent

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/arnau-ranchal/epcalculator/channel"
	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

// Mode is the arithmetic path used for every E0 evaluation of one
// optimisation. Mixing modes across rho produces a discontinuous objective,
// so the mode is chosen once from the distance tensor and latched.
type Mode int

const (
	// ModeRegular evaluates in linear space.
	ModeRegular Mode = iota
	// ModeHybrid computes log qg by log-sum-exp, then exponentiates back
	// and proceeds as ModeRegular.
	ModeHybrid
	// ModeLog never exponentiates; F is assembled entirely by
	// log-sum-exp and the gradient falls back to a one-sided finite
	// difference.
	ModeLog
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRegular:
		return "regular"
	case ModeHybrid:
		return "hybrid"
	case ModeLog:
		return "log"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Exponent-magnitude thresholds for mode latching. exp overflows float64
// near 709; the margins keep the downstream products finite.
const (
	regularMaxExponent = 650
	hybridMaxExponent  = 690
)

// degenerateSpread is the relative qg spread below which the channel is
// treated as indistinguishable (zero capacity).
const degenerateSpread = 1e-12

// fdStep is the one-sided finite-difference step used for the gradient in
// pure log-space.
const fdStep = 1e-6

// evaluator computes E0(rho) and dE0/drho for a fixed constellation and
// channel geometry under one latched mode.
type evaluator struct {
	ts   *channel.Tensors
	q    []float64
	logQ []float64
	qRow *mat.Dense
	mode Mode

	// Per-column block-diagonal quadrature weights and their logs,
	// extracted once from Pi.
	w    []float64
	logW []float64
}

func newEvaluator(cst *constellation.Constellation, ts *channel.Tensors) *evaluator {
	m := ts.M
	nn := ts.N * ts.N
	e := &evaluator{
		ts:   ts,
		q:    cst.Prob,
		logQ: make([]float64, m),
		w:    make([]float64, ts.Cols),
		logW: make([]float64, ts.Cols),
	}
	for i, q := range cst.Prob {
		e.logQ[i] = math.Log(q)
	}
	for col := 0; col < ts.Cols; col++ {
		w := ts.Pi.At(col/nn, col)
		e.w[col] = w
		e.logW[col] = math.Log(w)
	}
	e.qRow = mat.NewDense(1, m, append([]float64(nil), cst.Prob...))
	e.latch()
	return e
}

// latch picks the arithmetic mode for the whole optimisation from the
// largest sampled distance; the thresholds are probed at rho = 1, where both
// exponents peak over the feasible range.
func (e *evaluator) latch() {
	if e.ts.MaxD < regularMaxExponent {
		e.mode = ModeRegular
		return
	}
	lqg := e.logQG(1)
	if floats.Max(lqg) < hybridMaxExponent && e.ts.MaxD/2 < hybridMaxExponent {
		e.mode = ModeHybrid
		return
	}
	e.mode = ModeLog
}

// logQG returns log qg per column, with
//
//	qg(j) = sum_i Q_i exp(-D[i,j]/(1+rho)) ,
//
// computed by log-sum-exp over the weighted rows.
func (e *evaluator) logQG(rho float64) []float64 {
	m := e.ts.M
	inv := 1 / (1 + rho)
	lqg := make([]float64, e.ts.Cols)
	terms := make([]float64, m)
	for col := 0; col < e.ts.Cols; col++ {
		for i := 0; i < m; i++ {
			terms[i] = e.logQ[i] - e.ts.D.At(i, col)*inv
		}
		lqg[col] = floats.LogSumExp(terms)
	}
	return lqg
}

// qgLinear returns qg per column in linear space as the dense product
// Q^T exp(-D/(1+rho)).
func (e *evaluator) qgLinear(rho float64) []float64 {
	inv := 1 / (1 + rho)
	var ex mat.Dense
	ex.Apply(func(_, _ int, v float64) float64 { return math.Exp(-v * inv) }, e.ts.D)
	var qg mat.Dense
	qg.Mul(e.qRow, &ex)
	return qg.RawRowView(0)
}

// eval returns E0(rho) and dE0/drho. A degenerate channel yields (0, 0); a
// gross failure yields (Sentinel, 0).
func (e *evaluator) eval(rho float64) (e0, grad float64) {
	switch e.mode {
	case ModeRegular:
		e0, grad = e.assemble(rho, e.qgLinear(rho))
	case ModeHybrid:
		lqg := e.logQG(rho)
		qg := make([]float64, len(lqg))
		for i, v := range lqg {
			qg[i] = math.Exp(v)
		}
		e0, grad = e.assemble(rho, qg)
	case ModeLog:
		e0, grad = e.evalLog(rho)
	}
	return e.finish(rho, e0, grad)
}

// assemble forms F, its analytic rho-derivative and E0 from qg:
//
//	F     = (1/pi) sum_j Pi_j pg_j qg_j^rho
//	pg_j  = Q_a exp((rho/(1+rho)) D[a,j]) for block owner a
//	dF    = (1/pi) [ sum_j Pi_j pg_j qg_j^rho log qg_j
//	               + (1/(1+rho)) sum_j Pi_j pg_j D[a,j] qg_j^rho ]
//	E0    = -log2 F ,  dE0 = -dF/(F ln 2) .
func (e *evaluator) assemble(rho float64, qg []float64) (e0, grad float64) {
	mx, mn := floats.Max(qg), floats.Min(qg)
	if mx-mn <= degenerateSpread*mx {
		return 0, 0
	}
	nn := e.ts.N * e.ts.N
	c := rho / (1 + rho)
	var f, sumLog, sumD float64
	for col := 0; col < e.ts.Cols; col++ {
		if qg[col] == 0 {
			continue
		}
		a := col / nn
		d := e.ts.D.At(a, col)
		t := e.w[col] * e.q[a] * math.Exp(c*d) * math.Pow(qg[col], rho)
		if t == 0 {
			continue
		}
		f += t
		sumLog += t * math.Log(qg[col])
		sumD += t * d
	}
	f /= math.Pi
	dF := (sumLog + sumD/(1+rho)) / math.Pi
	return -math.Log2(f), -dF / (f * math.Ln2)
}

// evalLog assembles E0 without ever exponentiating. The analytic gradient is
// unstable in this regime; a one-sided finite difference replaces it.
func (e *evaluator) evalLog(rho float64) (e0, grad float64) {
	e0 = e.e0Log(rho)
	if e0 == Sentinel {
		return Sentinel, 0
	}
	grad = fd.Derivative(e.e0Log, rho, &fd.Settings{
		Formula:     fd.Forward,
		Step:        fdStep,
		OriginKnown: true,
		OriginValue: e0,
	})
	return e0, grad
}

func (e *evaluator) e0Log(rho float64) float64 {
	lqg := e.logQG(rho)
	mx, mn := floats.Max(lqg), floats.Min(lqg)
	if mx-mn <= degenerateSpread*math.Max(math.Abs(mx), 1) {
		return 0
	}
	nn := e.ts.N * e.ts.N
	c := rho / (1 + rho)
	terms := make([]float64, e.ts.Cols)
	for col := range terms {
		a := col / nn
		terms[col] = e.logW[col] + e.logQ[a] + c*e.ts.D.At(a, col) + rho*lqg[col]
	}
	logF0 := floats.LogSumExp(terms)
	if math.IsNaN(logF0) || math.IsInf(logF0, 0) {
		return Sentinel
	}
	return (math.Log(math.Pi) - logF0) / math.Ln2
}

// finish applies the recovery policy: clamp round-off negatives, sentinel
// everything grossly non-finite or below -0.5.
func (e *evaluator) finish(rho, e0, grad float64) (float64, float64) {
	if math.IsNaN(e0) || math.IsInf(e0, 0) || e0 < -0.5 {
		return Sentinel, 0
	}
	if e0 < 0 {
		logger.Logger().Debug().
			Float64("rho", rho).
			Float64("e0", e0).
			Msg("clamping slightly negative E0 to zero")
		e0 = 0
	}
	return e0, grad
}

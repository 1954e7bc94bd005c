package exponent

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/arnau-ranchal/epcalculator/channel"
	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

// peUnderflowLimit is the most negative base-2 exponent reported exactly;
// below it Pe is reported as zero with a note.
const peUnderflowLimit = -1000

// Points are explicit constellation coordinates for custom modulation.
type Points struct {
	Re   []float64 `json:"re"`
	Im   []float64 `json:"im"`
	Prob []float64 `json:"prob"`
}

// Params is the full parameter tuple of a compute call. The zero values of
// Threshold and MaxIters select the defaults.
type Params struct {
	M          int
	Modulation constellation.Kind
	SNR        float64
	R          float64
	N          int
	BlockLen   float64
	Threshold  float64
	Prior      constellation.Prior
	Beta       float64
	Custom     *Points
	MaxIters   int
}

// Result is the report of one compute call. Pe and ErrorExponent carry the
// sentinel -1 after a catastrophic numerical failure.
type Result struct {
	Pe                float64 `json:"pe"`
	ErrorExponent     float64 `json:"error_exponent"`
	RhoOptimal        float64 `json:"rho_optimal"`
	RhoInterp         float64 `json:"rho_interp"`
	MutualInformation float64 `json:"mutual_information"`
	CutoffRate        float64 `json:"cutoff_rate"`

	R         float64 `json:"rate"`
	SNR       float64 `json:"snr"`
	Mode      string  `json:"mode"`
	Iters     int     `json:"iterations"`
	Converged bool    `json:"converged"`
	Note      string  `json:"note,omitempty"`
}

// Compute runs the full pipeline: alphabet, prior and power normalisation,
// quadrature, channel tensors, rho optimisation, and the error probability
// bound. ctx is polled between the boundary evaluations and between
// optimiser iterations; cancellation returns a *CancelledError.
//
// Catastrophic numerical failure returns the sentinel-filled Result together
// with a *NumericalError so the caller can both report and react.
func Compute(ctx context.Context, p Params) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cst, err := buildConstellation(p)
	if err != nil {
		return nil, err
	}
	if err := validate(&p, len(cst.Points)); err != nil {
		return nil, err
	}

	ts, err := channel.Build(cst.Points, p.N, p.SNR)
	if err != nil {
		return nil, err
	}
	ev := newEvaluator(cst, ts)

	opt, err := optimize(ctx, ev, p.R, p.MaxIters, p.Threshold)
	if err != nil {
		var ee *errEval
		if errors.As(err, &ee) {
			res := &Result{
				Pe:            Sentinel,
				ErrorExponent: Sentinel,
				RhoOptimal:    ee.rho,
				R:             p.R,
				SNR:           p.SNR,
				Mode:          ev.mode.String(),
			}
			return res, &NumericalError{SNR: p.SNR, N: p.N, Rho: ee.rho}
		}
		return nil, err
	}
	if !opt.converged {
		logger.Logger().Warn().
			Float64("rho", opt.rho).
			Int("iters", opt.iters).
			Msg("rho optimisation exhausted its iteration budget")
	}

	// The reported exponent is the Gallager error exponent
	// E(R) = E0(rho*) - rho*R, the exponent of the block error bound.
	er := opt.e0 - opt.rho*p.R
	if er < 0 && er > -0.5 {
		logger.Logger().Debug().
			Float64("exponent", er).
			Msg("clamping slightly negative error exponent to zero")
		er = 0
	}
	res := &Result{
		ErrorExponent:     er,
		RhoOptimal:        opt.rho,
		RhoInterp:         opt.rhoInterp,
		MutualInformation: opt.mutualInfo,
		CutoffRate:        opt.cutoffRate,
		R:                 p.R,
		SNR:               p.SNR,
		Mode:              ev.mode.String(),
		Iters:             opt.iters,
		Converged:         opt.converged,
	}
	exp2 := -p.BlockLen * er
	if exp2 >= peUnderflowLimit {
		res.Pe = math.Exp2(exp2)
	} else {
		res.Pe = 0
		res.Note = "error probability underflows double precision, reported as zero"
	}
	return res, nil
}

func buildConstellation(p Params) (*constellation.Constellation, error) {
	if p.Modulation == constellation.Custom {
		if p.Custom == nil {
			return nil, ErrCustomPoints
		}
		if p.Prior == constellation.MaxwellBoltzmann {
			c, err := constellation.NewCustom(p.Custom.Re, p.Custom.Im, p.Custom.Prob)
			if err != nil {
				return nil, err
			}
			return constellation.New(c.Points, constellation.MaxwellBoltzmann, p.Beta)
		}
		return constellation.NewCustom(p.Custom.Re, p.Custom.Im, p.Custom.Prob)
	}
	x, err := constellation.Alphabet(p.M, p.Modulation)
	if err != nil {
		return nil, err
	}
	return constellation.New(x, p.Prior, p.Beta)
}

func validate(p *Params, m int) error {
	if !(p.R > 0) || p.R >= math.Log2(float64(m)) {
		return fmt.Errorf("%w: r=%v, m=%d", ErrRateRange, p.R, m)
	}
	if !(p.BlockLen > 0) {
		return fmt.Errorf("%w: n=%v", ErrBlockLength, p.BlockLen)
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	if !(p.Threshold > 0) {
		return fmt.Errorf("%w: threshold=%v", ErrThreshold, p.Threshold)
	}
	if p.MaxIters <= 0 {
		p.MaxIters = DefaultMaxIters
	}
	return nil
}

// SweepRate computes one Result per rate at otherwise fixed parameters.
// Per-point catastrophic failures keep their sentinel Result in place and
// the sweep continues; cancellation and input errors abort.
func SweepRate(ctx context.Context, p Params, rates []float64) ([]*Result, error) {
	out := make([]*Result, len(rates))
	for i, r := range rates {
		q := p
		q.R = r
		res, err := compute1(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

// SweepSNR computes one Result per SNR at otherwise fixed parameters, under
// the same failure policy as SweepRate.
func SweepSNR(ctx context.Context, p Params, snrs []float64) ([]*Result, error) {
	out := make([]*Result, len(snrs))
	for i, snr := range snrs {
		q := p
		q.SNR = snr
		res, err := compute1(ctx, q)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func compute1(ctx context.Context, p Params) (*Result, error) {
	res, err := Compute(ctx, p)
	var ne *NumericalError
	if errors.As(err, &ne) {
		return res, nil
	}
	return res, err
}

package exponent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/arnau-ranchal/epcalculator/channel"
	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/quadrature"
)

func baseParams() Params {
	return Params{
		M:          16,
		Modulation: constellation.PAM,
		SNR:        10,
		R:          0.5,
		N:          30,
		BlockLen:   100,
		Prior:      constellation.Uniform,
	}
}

// 16-PAM at SNR 10 and rate 1/2: the optimum sits at rho = 1 and the
// exponent matches the cutoff-rate bound R0 - R.
func TestComputeSixteenPAM(t *testing.T) {
	res, err := Compute(context.Background(), baseParams())
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, 1.0, res.RhoOptimal)
	require.InDelta(t, 1.28, res.ErrorExponent, 0.02)
	require.InDelta(t, res.CutoffRate-res.R, res.ErrorExponent, 1e-10)
	require.Equal(t, ModeRegular.String(), res.Mode)
	require.Greater(t, res.MutualInformation, res.CutoffRate)
	require.Less(t, res.Pe, 1e-38)
	require.InEpsilon(t, math.Exp2(-100*res.ErrorExponent), res.Pe, 1e-12)
}

// Square QAM beats PSK beats PAM at equal size and SNR.
func TestComputeModulationOrdering(t *testing.T) {
	results := make(map[constellation.Kind]*Result)
	for _, kind := range []constellation.Kind{constellation.PAM, constellation.PSK, constellation.QAM} {
		p := baseParams()
		p.Modulation = kind
		res, err := Compute(context.Background(), p)
		require.NoError(t, err)
		results[kind] = res
	}
	require.InDelta(t, 2.20, results[constellation.QAM].ErrorExponent, 0.02)
	require.Greater(t, results[constellation.QAM].ErrorExponent, results[constellation.PSK].ErrorExponent)
	require.Greater(t, results[constellation.PSK].ErrorExponent, results[constellation.PAM].ErrorExponent)
}

// A QAM request with non-square size falls back to PAM and reproduces the
// direct PAM run bit for bit.
func TestComputeQAMFallback(t *testing.T) {
	p := baseParams()
	p.M = 8
	p.R = 0.4
	p.Modulation = constellation.QAM
	fromQAM, err := Compute(context.Background(), p)
	require.NoError(t, err)
	p.Modulation = constellation.PAM
	fromPAM, err := Compute(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, fromPAM.ErrorExponent, fromQAM.ErrorExponent)
	require.Equal(t, fromPAM.RhoOptimal, fromQAM.RhoOptimal)
	require.Equal(t, fromPAM.Pe, fromQAM.Pe)
}

// High SNR forces a log-space mode and still yields a positive exponent.
func TestComputeHighSNRLogSpace(t *testing.T) {
	p := baseParams()
	p.M = 32
	p.SNR = 50
	p.N = 35
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	require.NotEqual(t, ModeRegular.String(), res.Mode)
	require.Greater(t, res.ErrorExponent, 0.0)
	require.True(t, res.Converged)
}

func TestComputeCutoffRateClosedForm(t *testing.T) {
	p := baseParams()
	p.M = 2
	p.SNR = 1
	p.R = 0.3
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	want := 1 - math.Log2(1+math.Exp(-1))
	if !scalar.EqualWithinAbs(res.CutoffRate, want, 1e-8) {
		t.Errorf("cutoff rate %v, want closed form %v", res.CutoffRate, want)
	}
}

func TestComputeMaxwellBoltzmannPrior(t *testing.T) {
	p := baseParams()
	p.Prior = constellation.MaxwellBoltzmann
	p.Beta = 1 / math.Pi
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	require.Greater(t, res.ErrorExponent, 0.0)
	require.Greater(t, res.MutualInformation, 0.0)
}

func TestComputeCustomPoints(t *testing.T) {
	p := baseParams()
	p.Modulation = constellation.Custom
	p.R = 0.8
	p.Custom = &Points{
		Re:   []float64{-3, -1, 1, 3},
		Im:   []float64{0, 0, 0, 0},
		Prob: []float64{0.15, 0.35, 0.35, 0.15},
	}
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	require.Greater(t, res.ErrorExponent, 0.0)
	require.Less(t, res.MutualInformation, 2.0)
}

func TestComputeInputErrors(t *testing.T) {
	for _, test := range []struct {
		name   string
		mutate func(*Params)
		want   error
	}{
		{"zero rate", func(p *Params) { p.R = 0 }, ErrRateRange},
		{"rate at capacity ceiling", func(p *Params) { p.R = 4 }, ErrRateRange},
		{"negative SNR", func(p *Params) { p.SNR = -2 }, channel.ErrSNRRange},
		{"zero block length", func(p *Params) { p.BlockLen = 0 }, ErrBlockLength},
		{"negative threshold", func(p *Params) { p.Threshold = -1 }, ErrThreshold},
		{"quadrature order too small", func(p *Params) { p.N = 1 }, quadrature.ErrOrderRange},
		{"quadrature order too large", func(p *Params) { p.N = 300 }, quadrature.ErrOrderRange},
		{"tiny alphabet", func(p *Params) { p.M = 1 }, constellation.ErrSize},
		{"missing custom points", func(p *Params) { p.Modulation = constellation.Custom }, ErrCustomPoints},
		{"negative beta", func(p *Params) { p.Prior = constellation.MaxwellBoltzmann; p.Beta = -1 }, constellation.ErrBeta},
	} {
		p := baseParams()
		test.mutate(&p)
		_, err := Compute(context.Background(), p)
		require.ErrorIs(t, err, test.want, test.name)
	}
}

func TestComputePeUnderflowReportsZero(t *testing.T) {
	p := baseParams()
	p.BlockLen = 1e6
	res, err := Compute(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, 0.0, res.Pe)
	require.NotEmpty(t, res.Note)
}

func TestComputeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, baseParams())
	var ce *CancelledError
	require.ErrorAs(t, err, &ce)
}

func TestSweepRate(t *testing.T) {
	rates := []float64{0.25, 0.5, 1, 2}
	res, err := SweepRate(context.Background(), baseParams(), rates)
	require.NoError(t, err)
	require.Len(t, res, len(rates))
	for i, r := range res {
		require.Equal(t, rates[i], r.R)
		require.GreaterOrEqual(t, r.ErrorExponent, 0.0)
	}
	// E(R) is non-increasing in the rate.
	for i := 1; i < len(res); i++ {
		require.LessOrEqual(t, res[i].ErrorExponent, res[i-1].ErrorExponent+1e-9)
	}
}

func TestSweepSNR(t *testing.T) {
	snrs := []float64{1, 5, 10, 20}
	res, err := SweepSNR(context.Background(), baseParams(), snrs)
	require.NoError(t, err)
	require.Len(t, res, len(snrs))
	for i := 1; i < len(res); i++ {
		require.GreaterOrEqual(t, res[i].ErrorExponent, res[i-1].ErrorExponent-1e-9,
			"error exponent should not decrease with SNR")
	}
}

package channel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/quadrature"
)

func TestBuildShapesAndBlockDiagonal(t *testing.T) {
	const (
		m   = 4
		n   = 5
		snr = 3.0
	)
	x, err := constellation.Alphabet(m, constellation.PAM)
	require.NoError(t, err)
	ts, err := Build(x, n, snr)
	require.NoError(t, err)

	require.Equal(t, m, ts.M)
	require.Equal(t, n, ts.N)
	require.Equal(t, n*n*m, ts.Cols)
	r, c := ts.D.Dims()
	require.Equal(t, m, r)
	require.Equal(t, n*n*m, c)
	r, c = ts.Pi.Dims()
	require.Equal(t, m, r)
	require.Equal(t, n*n*m, c)

	_, w2, err := quadrature.Nodes2D(n)
	require.NoError(t, err)
	for a := 0; a < m; a++ {
		for k := 0; k < n*n; k++ {
			col := a*n*n + k
			for i := 0; i < m; i++ {
				want := 0.0
				if i == a {
					want = w2[k]
				}
				if ts.Pi.At(i, col) != want {
					t.Fatalf("Pi[%d,%d] = %v, want %v", i, col, ts.Pi.At(i, col), want)
				}
			}
		}
	}
}

// The own-block diagonal of D is the squared noise magnitude, independent of
// the transmitted symbol and the SNR.
func TestBuildDiagonalIsNoiseEnergy(t *testing.T) {
	const (
		m = 8
		n = 6
	)
	x, err := constellation.Alphabet(m, constellation.PSK)
	require.NoError(t, err)
	z, _, err := quadrature.Nodes2D(n)
	require.NoError(t, err)
	for _, snr := range []float64{0.5, 10, 200} {
		ts, err := Build(x, n, snr)
		require.NoError(t, err)
		for a := 0; a < m; a++ {
			for k, zk := range z {
				want := real(zk)*real(zk) + imag(zk)*imag(zk)
				got := ts.D.At(a, a*n*n+k)
				if !scalar.EqualWithinAbs(got, want, 1e-12) {
					t.Fatalf("snr=%v: D[%d,%d] = %v, want |z|^2 = %v", snr, a, a*n*n+k, got, want)
				}
			}
		}
	}
}

func TestBuildMaxDGrowsWithSNR(t *testing.T) {
	x, err := constellation.Alphabet(4, constellation.PAM)
	require.NoError(t, err)
	var last float64
	for _, snr := range []float64{1, 10, 100, 1000} {
		ts, err := Build(x, 8, snr)
		require.NoError(t, err)
		if ts.MaxD <= last {
			t.Fatalf("MaxD not increasing: %v after %v at snr=%v", ts.MaxD, last, snr)
		}
		last = ts.MaxD
	}
}

func TestBuildErrors(t *testing.T) {
	x, err := constellation.Alphabet(4, constellation.PAM)
	require.NoError(t, err)
	for _, snr := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Build(x, 5, snr)
		require.ErrorIs(t, err, ErrSNRRange, "snr=%v", snr)
	}
	_, err = Build(x, 1, 1)
	require.ErrorIs(t, err, quadrature.ErrOrderRange)
}

// Package channel builds the dense distance and quadrature-weight tensors of
// a memoryless AWGN channel sampled on the Gauss-Hermite grid.
package channel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/arnau-ranchal/epcalculator/quadrature"
)

// ErrSNRRange is returned for non-positive or non-finite SNR.
var ErrSNRRange = errors.New("channel: SNR must be positive and finite")

// Tensors holds the sampled channel geometry for an M-point alphabet at
// quadrature order N. Both matrices have shape M x (N^2*M): column a*N^2+k
// corresponds to the receive point y = sqrt(SNR)*x_a + z_k, with z_k the
// k-th complex product node. D carries squared distances |y - sqrt(SNR)*x_i|^2,
// Pi the product quadrature weights on the block diagonal (row a within
// block a) and zero elsewhere.
type Tensors struct {
	D  *mat.Dense
	Pi *mat.Dense

	M    int
	N    int
	Cols int

	// MaxD is the largest entry of D, the quantity that decides the
	// arithmetic mode for a whole optimisation.
	MaxD float64
}

// Build samples the channel for the given unit-power alphabet.
func Build(points []complex128, n int, snr float64) (*Tensors, error) {
	if !(snr > 0) || math.IsInf(snr, 1) {
		return nil, fmt.Errorf("%w: snr=%v", ErrSNRRange, snr)
	}
	z, w2, err := quadrature.Nodes2D(n)
	if err != nil {
		return nil, err
	}
	m := len(points)
	nn := n * n
	cols := nn * m
	d := mat.NewDense(m, cols, nil)
	pi := mat.NewDense(m, cols, nil)

	root := complex(math.Sqrt(snr), 0)
	var maxD float64
	for a := 0; a < m; a++ {
		ya := root * points[a]
		for k, zk := range z {
			col := a*nn + k
			y := ya + zk
			for i := 0; i < m; i++ {
				dv := y - root*points[i]
				dist := real(dv)*real(dv) + imag(dv)*imag(dv)
				d.Set(i, col, dist)
				if dist > maxD {
					maxD = dist
				}
			}
			pi.Set(a, col, w2[k])
		}
	}
	return &Tensors{D: d, Pi: pi, M: m, N: n, Cols: cols, MaxD: maxD}, nil
}

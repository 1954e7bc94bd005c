package quadrature

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinOrder and MaxOrder bound the supported quadrature orders.
const (
	MinOrder = 2
	MaxOrder = 200
)

// ErrOrderRange is returned for orders outside [MinOrder, MaxOrder].
var ErrOrderRange = errors.New("quadrature: order out of range")

// Hermite returns the n nodes and weights of the physicist's Gauss-Hermite
// rule, nodes ascending. The returned slices are copies; the underlying
// table is computed once per order and cached.
func Hermite(n int) (x, w []float64, err error) {
	if n < MinOrder || n > MaxOrder {
		return nil, nil, fmt.Errorf("%w: n=%d, want %d <= n <= %d", ErrOrderRange, n, MinOrder, MaxOrder)
	}
	t := cached(n)
	x = make([]float64, n)
	w = make([]float64, n)
	copy(x, t.x)
	copy(w, t.w)
	return x, w, nil
}

// Nodes2D returns the n*n complex tensor-product nodes z = t_a + i*t_b and
// the corresponding product weights w_a*w_b, indexed k = a*n + b.
func Nodes2D(n int) (z []complex128, w []float64, err error) {
	x, w1, err := Hermite(n)
	if err != nil {
		return nil, nil, err
	}
	z = make([]complex128, n*n)
	w = make([]float64, n*n)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			k := a*n + b
			z[k] = complex(x[a], x[b])
			w[k] = w1[a] * w1[b]
		}
	}
	return z, w, nil
}

// newtonTol is the node convergence tolerance of the Newton iteration.
const newtonTol = 1e-14

// hermite computes the rule by Newton iteration on the orthonormal Hermite
// recurrence. The recurrence evaluation stays bounded for all supported
// orders, unlike the raw polynomials whose values overflow near n = 170.
//
// References:
// G. H. Golub and J. A. Welsch, "Calculation of Gauss quadrature rules",
// Math. Comp. 23:221-230, 1969.
// F. G. Tricomi, Sugli zeri delle funzioni di cui si conosce una
// rappresentazione asintotica, Ann. Mat. Pura Appl. 26 (1947), pp. 283-300.
func hermite(n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	m := (n + 1) / 2
	half := make([]float64, m) // positive roots, descending
	halfW := make([]float64, m)

	var z float64
	for i := 0; i < m; i++ {
		// Initial guesses: largest root from the asymptotic edge
		// estimate, the rest stepped inward from previous roots.
		switch i {
		case 0:
			z = math.Sqrt(2*float64(n)+1) - 1.85575*math.Pow(2*float64(n)+1, -1.0/6)
		case 1:
			z -= 1.14 * math.Pow(float64(n), 0.426) / z
		case 2:
			z = 1.86*z - 0.86*half[0]
		case 3:
			z = 1.91*z - 0.91*half[1]
		default:
			z = 2*z - half[i-2]
		}
		var pp float64
		for it := 0; it < 100; it++ {
			var p1, p2 float64
			p1 = math.Pow(math.Pi, -0.25)
			for j := 1; j <= n; j++ {
				p3 := p2
				p2 = p1
				p1 = z*math.Sqrt(2/float64(j))*p2 - math.Sqrt(float64(j-1)/float64(j))*p3
			}
			pp = math.Sqrt(2*float64(n)) * p2
			dz := p1 / pp
			z -= dz
			if math.Abs(dz) < newtonTol {
				break
			}
		}
		half[i] = z
		halfW[i] = 2 / (pp * pp)
	}

	// Assemble symmetrically: t_i = -t_{n-1-i} and w_i = w_{n-1-i} hold
	// exactly, with an exact zero centre node for odd n.
	for i := 0; i < m; i++ {
		x[n-1-i] = half[i]
		x[i] = -half[i]
		w[n-1-i] = halfW[i]
		w[i] = halfW[i]
	}
	if n%2 == 1 {
		x[n/2] = 0
	}

	// Renormalise so the rule integrates 1 to sqrt(pi) exactly.
	c := math.SqrtPi / floats.Sum(w)
	floats.Scale(c, w)
	return x, w
}

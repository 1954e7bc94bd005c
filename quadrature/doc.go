// Package quadrature provides Gauss-Hermite sample locations and weights
// for integrals with a squared-exponential weight
//
//	int_-inf^inf e^(-t^2) f(t) dt ≈ sum_k w_k f(t_k) ,
//
// exact for polynomials of degree up to 2n-1, together with the
// two-dimensional tensor-product rule used for complex Gaussian noise.
// Tables are memoised per order for the lifetime of the process.
package quadrature

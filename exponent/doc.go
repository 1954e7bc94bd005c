// Package exponent computes Gallager's random-coding exponent E0(rho), the
// error exponent E(R) = max_{rho in [0,1]} E0(rho) - rho*R, and the block
// error probability bound Pe = 2^(-n*E(R)) for memoryless AWGN channels
// with discrete input constellations.
//
// The evaluation latches one of three arithmetic modes per optimisation
// (linear, hybrid log-space, pure log-space) depending on the magnitude of
// the sampled squared distances, so that every E0 evaluation inside an
// optimisation shares the same arithmetic path.
package exponent

// Package constellation builds discrete channel-input alphabets (PAM, PSK,
// QAM and custom point sets), assigns uniform or Maxwell-Boltzmann priors,
// and jointly rescales points and prior to unit average power
//
//	sum_i Q_i |x_i|^2 = 1 .
package constellation

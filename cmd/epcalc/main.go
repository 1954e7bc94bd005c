// Command epcalc computes the random-coding error exponent, the block error
// probability bound and the channel side quantities for one parameter set,
// and prints the result as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/exponent"
	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

func main() {
	var (
		m        = flag.Int("m", 16, "constellation size")
		mod      = flag.String("modulation", "PAM", "modulation: PAM, PSK or QAM")
		snr      = flag.Float64("snr", 10, "signal-to-noise ratio, linear scale")
		rate     = flag.Float64("rate", 0.5, "transmission rate in bits per channel use")
		order    = flag.Int("quad", 30, "Gauss-Hermite quadrature order")
		blockLen = flag.Float64("blocklen", 100, "block length")
		eps      = flag.Float64("threshold", exponent.DefaultThreshold, "gradient convergence tolerance")
		prior    = flag.String("prior", "uniform", "prior: uniform or maxwell_boltzmann")
		beta     = flag.Float64("beta", 0, "Maxwell-Boltzmann shaping parameter")
		quiet    = flag.Bool("q", false, "suppress log output")
	)
	flag.Parse()
	if *quiet {
		logger.Disable()
	}
	log := logger.Logger()

	kind, err := constellation.ParseKind(*mod)
	if err != nil {
		log.Fatal().Err(err).Msg("bad modulation")
	}
	pr, err := constellation.ParsePrior(*prior)
	if err != nil {
		log.Fatal().Err(err).Msg("bad prior")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := exponent.Compute(ctx, exponent.Params{
		M:          *m,
		Modulation: kind,
		SNR:        *snr,
		R:          *rate,
		N:          *order,
		BlockLen:   *blockLen,
		Threshold:  *eps,
		Prior:      pr,
		Beta:       *beta,
	})
	if err != nil {
		var ne *exponent.NumericalError
		if !errors.As(err, &ne) {
			log.Fatal().Err(err).Msg("compute failed")
		}
		// The sentinel result is still printed so the caller can see
		// the failure shape; a larger quadrature order usually helps.
		log.Error().Err(err).Msg("numerical failure")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatal().Err(err).Msg("encoding result")
	}
}

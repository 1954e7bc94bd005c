// Command epsweep sweeps the error exponent over a rate or SNR grid,
// computing the points in parallel, and writes the collected results as
// JSON together with an interactive HTML chart page and a PNG figure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/arnau-ranchal/epcalculator/constellation"
	"github.com/arnau-ranchal/epcalculator/exponent"
	"github.com/arnau-ranchal/epcalculator/internal/logger"
)

func main() {
	var (
		m        = flag.Int("m", 16, "constellation size")
		mod      = flag.String("modulation", "QAM", "modulation: PAM, PSK or QAM")
		snr      = flag.Float64("snr", 10, "signal-to-noise ratio, linear scale (fixed for rate sweeps)")
		rate     = flag.Float64("rate", 0.5, "transmission rate in bits (fixed for SNR sweeps)")
		order    = flag.Int("quad", 30, "Gauss-Hermite quadrature order")
		blockLen = flag.Float64("blocklen", 100, "block length")
		prior    = flag.String("prior", "uniform", "prior: uniform or maxwell_boltzmann")
		beta     = flag.Float64("beta", 0, "Maxwell-Boltzmann shaping parameter")
		sweep    = flag.String("sweep", "rate", "sweep variable: rate or snr")
		from     = flag.Float64("from", 0.1, "first grid point")
		to       = flag.Float64("to", 3.5, "last grid point")
		points   = flag.Int("points", 32, "number of grid points")
		outJSON  = flag.String("json", "sweep.json", "JSON output path (empty to skip)")
		outHTML  = flag.String("html", "sweep.html", "HTML chart output path (empty to skip)")
		outPNG   = flag.String("png", "sweep.png", "PNG figure output path (empty to skip)")
	)
	flag.Parse()
	log := logger.Logger()

	kind, err := constellation.ParseKind(*mod)
	if err != nil {
		log.Fatal().Err(err).Msg("bad modulation")
	}
	pr, err := constellation.ParsePrior(*prior)
	if err != nil {
		log.Fatal().Err(err).Msg("bad prior")
	}
	if *points < 2 || *to <= *from {
		log.Fatal().Msgf("bad grid: %d points on [%v, %v]", *points, *from, *to)
	}

	params := exponent.Params{
		M:          *m,
		Modulation: kind,
		SNR:        *snr,
		R:          *rate,
		N:          *order,
		BlockLen:   *blockLen,
		Prior:      pr,
		Beta:       *beta,
	}
	grid := make([]float64, *points)
	for i := range grid {
		grid[i] = *from + (*to-*from)*float64(i)/float64(*points-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := sweepParallel(ctx, params, *sweep, grid)
	if err != nil {
		log.Fatal().Err(err).Msg("sweep failed")
	}

	if *outJSON != "" {
		if err := writeJSON(*outJSON, results); err != nil {
			log.Fatal().Err(err).Msg("writing JSON")
		}
		log.Info().Str("path", *outJSON).Msg("wrote sweep data")
	}
	if *outHTML != "" {
		if err := writeHTML(*outHTML, *sweep, grid, results); err != nil {
			log.Fatal().Err(err).Msg("writing HTML charts")
		}
		log.Info().Str("path", *outHTML).Msg("wrote chart page")
	}
	if *outPNG != "" {
		if err := writePNG(*outPNG, *sweep, grid, results); err != nil {
			log.Fatal().Err(err).Msg("writing PNG figure")
		}
		log.Info().Str("path", *outPNG).Msg("wrote figure")
	}
}

// sweepParallel computes the grid points concurrently, bounded by the CPU
// count. Per-point numerical failures keep their sentinel result; the first
// input error or cancellation aborts the whole sweep.
func sweepParallel(ctx context.Context, params exponent.Params, sweep string, grid []float64) ([]*exponent.Result, error) {
	results := make([]*exponent.Result, len(grid))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, v := range grid {
		g.Go(func() error {
			p := params
			switch sweep {
			case "rate":
				p.R = v
			case "snr":
				p.SNR = v
			default:
				return fmt.Errorf("unknown sweep variable %q", sweep)
			}
			res, err := exponent.Compute(ctx, p)
			if err != nil {
				var ne *exponent.NumericalError
				if errors.As(err, &ne) {
					results[i] = res
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeJSON(path string, results []*exponent.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// writeHTML renders an interactive page with the exponent curve and the
// error probability bound over the sweep variable.
func writeHTML(path, sweep string, grid []float64, results []*exponent.Result) error {
	xs := make([]string, len(grid))
	expData := make([]opts.LineData, len(grid))
	miData := make([]opts.LineData, len(grid))
	peData := make([]opts.LineData, len(grid))
	for i, v := range grid {
		xs[i] = fmt.Sprintf("%.4g", v)
		expData[i] = opts.LineData{Value: results[i].ErrorExponent}
		miData[i] = opts.LineData{Value: results[i].MutualInformation}
		peData[i] = opts.LineData{Value: results[i].Pe}
	}

	exp := charts.NewLine()
	exp.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Random-coding error exponent", Subtitle: "sweep over " + sweep}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "epsweep", Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: sweep}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bits"}),
	)
	exp.SetXAxis(xs).
		AddSeries("E(R)", expData).
		AddSeries("I(X;Y)", miData).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	pe := charts.NewLine()
	pe.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Block error probability bound"}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: sweep}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pe"}),
	)
	pe.SetXAxis(xs).
		AddSeries("Pe", peData).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	page := components.NewPage()
	page.AddCharts(exp, pe)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// writePNG renders the exponent curve as a static figure.
func writePNG(path, sweep string, grid []float64, results []*exponent.Result) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Random-coding error exponent"
	p.X.Label.Text = sweep
	p.Y.Label.Text = "E(R) [bits]"
	p.Add(plotter.NewGrid())

	expPts := make(plotter.XYs, len(grid))
	miPts := make(plotter.XYs, len(grid))
	for i, v := range grid {
		expPts[i] = plotter.XY{X: v, Y: results[i].ErrorExponent}
		miPts[i] = plotter.XY{X: v, Y: results[i].MutualInformation}
	}
	if err := plotutil.AddLinePoints(p, "E(R)", expPts, "I(X;Y)", miPts); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// Package sweep orchestrates repeated engine invocations across parameter
// grids and tax-rate ranges. Every sweep point is an independent simulation
// with its own fresh state, so points run on a bounded worker pool; results
// are written positionally, which keeps output deterministic regardless of
// execution order. All inner runs share one constant seed so that only the
// swept parameter varies the outcome.
package sweep

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/regime"
)

// PhaseMapConfig describes a phase-map grid sweep over (alpha, lambda).
// Churn, seed, taxes and the rest of the trajectory parameters come from
// Base; Base.Horizon should be the reduced sweep horizon, shorter than the
// interactive default.
type PhaseMapConfig struct {
	Base       engine.Params `json:"base"`
	AlphaMin   float64       `json:"alpha_min"`
	AlphaMax   float64       `json:"alpha_max"`
	LambdaMin  float64       `json:"lambda_min"`
	LambdaMax  float64       `json:"lambda_max"`
	Resolution int           `json:"resolution"` // R×R grid, R ≥ 1
	Workers    int           `json:"workers"`    // 0 = GOMAXPROCS
}

// PhasePoint is one grid cell summary. Row 0 holds the highest lambda band
// (top of a visual map) and columns run from low to high alpha; consumers
// index cells positionally on that contract.
type PhasePoint struct {
	Row           int     `json:"row"`
	Col           int     `json:"col"`
	Alpha         float64 `json:"alpha"`
	Lambda        float64 `json:"lambda"`
	Regime        string  `json:"regime"`
	Color         string  `json:"color"`
	MutualInfo    float64 `json:"mutual_info"`
	Concentration float64 `json:"concentration"`
}

// TaxKind selects which tax rate a curve sweep varies.
type TaxKind string

const (
	TaxIncome TaxKind = "income"
	TaxWealth TaxKind = "wealth"
)

// TaxCurveConfig describes a 1-D sweep of one tax rate from 0 to MaxRate
// inclusive in Steps equal increments (Steps+1 points). The non-swept tax
// rate is held at Base's value.
type TaxCurveConfig struct {
	Base    engine.Params `json:"base"`
	Kind    TaxKind       `json:"kind"`
	MaxRate float64       `json:"max_rate"`
	Steps   int           `json:"steps"` // ≥ 1
	Workers int           `json:"workers"`
}

// TaxCurvePoint is one rate point summary. Concentration is the terminal
// reward-count index — not the wealth index — so income and wealth curves
// stay comparable.
type TaxCurvePoint struct {
	RatePct       float64 `json:"rate_pct"`
	Revenue       float64 `json:"revenue"`
	Concentration float64 `json:"concentration"`
}

// PhaseMap runs one reduced-horizon simulation per grid cell at the cell's
// (alpha, lambda) midpoint and collects the classifier's regime plus the
// run's terminal mutual information and concentration. Cancelling the
// context aborts between points and discards all progress.
func PhaseMap(ctx context.Context, cfg PhaseMapConfig) ([]PhasePoint, error) {
	r := cfg.Resolution
	if r < 1 {
		return nil, nil
	}

	start := time.Now()
	points := make([]PhasePoint, r*r)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(cfg.Workers))

	alphaStep := (cfg.AlphaMax - cfg.AlphaMin) / float64(r)
	lambdaStep := (cfg.LambdaMax - cfg.LambdaMin) / float64(r)

	for row := 0; row < r; row++ {
		for col := 0; col < r; col++ {
			row, col := row, col
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				// Row 0 is the top of the map: the highest lambda band.
				alpha := cfg.AlphaMin + (float64(col)+0.5)*alphaStep
				lambda := cfg.LambdaMin + (float64(r-1-row)+0.5)*lambdaStep

				p := cfg.Base
				p.Alpha = alpha
				p.Lambda = lambda
				run := engine.Simulate(p)
				final := run.Final()

				class := regime.Classify(alpha, lambda, p.Churn)
				points[row*r+col] = PhasePoint{
					Row:           row,
					Col:           col,
					Alpha:         alpha,
					Lambda:        lambda,
					Regime:        class.Name,
					Color:         class.Color,
					MutualInfo:    final.MutualInfo,
					Concentration: final.RewardConcentration,
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("phase map complete",
		"resolution", r,
		"horizon", cfg.Base.Horizon,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return points, nil
}

// TaxCurve runs one simulation per rate point, varying only the selected
// tax rate. Cancelling the context aborts between points and discards all
// progress.
func TaxCurve(ctx context.Context, cfg TaxCurveConfig) ([]TaxCurvePoint, error) {
	if cfg.Steps < 1 {
		return nil, nil
	}

	start := time.Now()
	points := make([]TaxCurvePoint, cfg.Steps+1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(cfg.Workers))

	for i := 0; i <= cfg.Steps; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rate := cfg.MaxRate * float64(i) / float64(cfg.Steps)
			p := cfg.Base
			switch cfg.Kind {
			case TaxWealth:
				p.WealthTaxRate = rate
			default:
				p.IncomeTaxRate = rate
			}

			run := engine.Simulate(p)
			points[i] = TaxCurvePoint{
				RatePct:       rate * 100,
				Revenue:       run.TaxRevenue,
				Concentration: run.Final().RewardConcentration,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("tax curve complete",
		"kind", cfg.Kind,
		"points", len(points),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return points, nil
}

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.GOMAXPROCS(0)
}

// Command meritsim runs the preferential-attachment merit simulator: single
// trajectories, phase-map and tax-curve sweeps, or the HTTP API for chart
// frontends.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"

	"github.com/talgya/meritsim/internal/api"
	"github.com/talgya/meritsim/internal/config"
	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/persistence"
	"github.com/talgya/meritsim/internal/regime"
	"github.com/talgya/meritsim/internal/sweep"
)

func main() {
	mode := flag.String("mode", "run", "run | phase | tax | serve")
	configPath := flag.String("config", "", "optional TOML config file")
	noSave := flag.Bool("no-save", false, "skip writing results to the database")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("config load failed", "path", *configPath, "error", err)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", *configPath)
	}

	var db *persistence.DB
	if !*noSave || *mode == "serve" {
		os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
		var err error
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "run":
		runOnce(cfg, db)
	case "phase":
		runPhaseMap(ctx, cfg, db)
	case "tax":
		runTaxCurve(ctx, cfg, db)
	case "serve":
		serve(ctx, cfg, db)
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(1)
	}
}

func runOnce(cfg config.Config, db *persistence.DB) {
	p := cfg.Params
	class := regime.Classify(p.Alpha, p.Lambda, p.Churn)
	slog.Info("simulating",
		"horizon", p.Horizon,
		"alpha", p.Alpha,
		"lambda", p.Lambda,
		"churn", p.Churn,
		"seed", p.Seed,
		"regime", class.Name,
	)

	start := time.Now()
	run := engine.Simulate(p)
	final := run.Final()

	fmt.Printf("\n%s regime — %s steps in %s\n",
		class.Name, humanize.Comma(int64(p.Horizon)), time.Since(start).Round(time.Millisecond))
	fmt.Printf("  reward concentration  %.4f\n", final.RewardConcentration)
	fmt.Printf("  wealth concentration  %.4f\n", final.WealthConcentration)
	fmt.Printf("  mutual information    %.4f bits\n", final.MutualInfo)
	fmt.Printf("  top-1 / top-10%% share %.3f / %.3f\n", final.Top1Share, final.Top10Share)
	fmt.Printf("  tax revenue           %s\n", humanize.CommafWithDigits(run.TaxRevenue, 2))

	if len(run.TopAgents) > 0 {
		fmt.Println("\n  leading agents (entry order, effort, rewards):")
		for i, a := range run.TopAgents {
			if i >= 5 {
				break
			}
			fmt.Printf("    #%-5d effort %.2f  rewards %4d  share %.3f\n",
				a.Index, a.Effort, a.Rewards, a.Share)
		}
	}

	if db != nil {
		if _, err := db.SaveRun(run); err != nil {
			slog.Error("run save failed", "error", err)
		}
	}
}

func runPhaseMap(ctx context.Context, cfg config.Config, db *persistence.DB) {
	sweepCfg := sweep.PhaseMapConfig{
		Base:       cfg.Params,
		AlphaMin:   cfg.PhaseAlphaMin,
		AlphaMax:   cfg.PhaseAlphaMax,
		LambdaMin:  cfg.PhaseLambdaMin,
		LambdaMax:  cfg.PhaseLambdaMax,
		Resolution: cfg.PhaseResolution,
		Workers:    cfg.SweepWorkers,
	}
	sweepCfg.Base.Horizon = cfg.PhaseHorizon

	points, err := sweep.PhaseMap(ctx, sweepCfg)
	if err != nil {
		slog.Error("phase map aborted", "error", err)
		os.Exit(1)
	}

	// Row-major print: one character cell per regime, top row = high lambda.
	fmt.Printf("\nphase map  alpha %g..%g  lambda %g..%g  churn %g\n\n",
		sweepCfg.AlphaMin, sweepCfg.AlphaMax, sweepCfg.LambdaMin, sweepCfg.LambdaMax, sweepCfg.Base.Churn)
	r := sweepCfg.Resolution
	for row := 0; row < r; row++ {
		fmt.Print("  ")
		for col := 0; col < r; col++ {
			fmt.Printf("%c", points[row*r+col].Regime[0])
		}
		fmt.Println()
	}
	fmt.Println("\n  O=Ordered P=Periodic C=Complex/Chaotic T=Transitional")

	if db != nil {
		if _, err := db.SavePhaseMap(sweepCfg, points); err != nil {
			slog.Error("phase map save failed", "error", err)
		}
	}
}

func runTaxCurve(ctx context.Context, cfg config.Config, db *persistence.DB) {
	sweepCfg := sweep.TaxCurveConfig{
		Base:    cfg.Params,
		Kind:    cfg.TaxKind,
		MaxRate: cfg.TaxMaxRate,
		Steps:   cfg.TaxSteps,
		Workers: cfg.SweepWorkers,
	}

	points, err := sweep.TaxCurve(ctx, sweepCfg)
	if err != nil {
		slog.Error("tax curve aborted", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\n%s tax curve  rate 0..%g  horizon %s\n\n",
		sweepCfg.Kind, sweepCfg.MaxRate, humanize.Comma(int64(sweepCfg.Base.Horizon)))
	fmt.Println("   rate     revenue  concentration")
	for _, pt := range points {
		fmt.Printf("  %5.1f%%  %10s  %.4f\n",
			pt.RatePct, humanize.CommafWithDigits(pt.Revenue, 2), pt.Concentration)
	}

	if db != nil {
		if _, err := db.SaveTaxCurve(sweepCfg, points); err != nil {
			slog.Error("tax curve save failed", "error", err)
		}
	}
}

func serve(ctx context.Context, cfg config.Config, db *persistence.DB) {
	server := &api.Server{Cfg: cfg, DB: db, Port: cfg.APIPort}
	server.Start()

	fmt.Printf("meritsim API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", cfg.APIPort)
	<-ctx.Done()
	slog.Info("shutting down")
}

package sweep

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/talgya/meritsim/internal/engine"
)

func sweepBase() engine.Params {
	p := engine.DefaultParams()
	p.Horizon = 120 // reduced sweep horizon
	p.Seed = 7
	return p
}

func TestPhaseMapGridContract(t *testing.T) {
	cfg := PhaseMapConfig{
		Base:       sweepBase(),
		AlphaMin:   0.0,
		AlphaMax:   2.0,
		LambdaMin:  0.0,
		LambdaMax:  1.0,
		Resolution: 4,
	}

	points, err := PhaseMap(context.Background(), cfg)
	if err != nil {
		t.Fatalf("PhaseMap: %v", err)
	}
	if len(points) != 16 {
		t.Fatalf("expected 16 points, got %d", len(points))
	}

	// Positional contract: row-major, row 0 = highest lambda band, columns
	// low alpha to high alpha.
	for i, pt := range points {
		if pt.Row != i/4 || pt.Col != i%4 {
			t.Fatalf("point %d has position (%d,%d), want (%d,%d)", i, pt.Row, pt.Col, i/4, i%4)
		}
	}
	if points[0].Lambda <= points[12].Lambda {
		t.Fatalf("row 0 lambda %v should exceed bottom row lambda %v", points[0].Lambda, points[12].Lambda)
	}
	if points[0].Alpha >= points[3].Alpha {
		t.Fatalf("col 0 alpha %v should be below col 3 alpha %v", points[0].Alpha, points[3].Alpha)
	}

	// Cell midpoints: first column center at min + step/2.
	if math.Abs(points[0].Alpha-0.25) > 1e-12 {
		t.Fatalf("first column alpha midpoint = %v, want 0.25", points[0].Alpha)
	}
	if math.Abs(points[0].Lambda-0.875) > 1e-12 {
		t.Fatalf("top row lambda midpoint = %v, want 0.875", points[0].Lambda)
	}

	for _, pt := range points {
		if pt.Regime == "" || pt.Color == "" {
			t.Fatalf("point (%d,%d) missing regime classification", pt.Row, pt.Col)
		}
		if pt.Concentration < 0 || pt.Concentration > 1 {
			t.Fatalf("point (%d,%d) concentration out of [0,1]: %v", pt.Row, pt.Col, pt.Concentration)
		}
	}
}

func TestPhaseMapDeterministic(t *testing.T) {
	cfg := PhaseMapConfig{
		Base:       sweepBase(),
		AlphaMin:   0.5,
		AlphaMax:   1.5,
		LambdaMin:  0.0,
		LambdaMax:  1.0,
		Resolution: 3,
		Workers:    4,
	}

	a, err := PhaseMap(context.Background(), cfg)
	if err != nil {
		t.Fatalf("PhaseMap: %v", err)
	}
	cfg.Workers = 1
	b, err := PhaseMap(context.Background(), cfg)
	if err != nil {
		t.Fatalf("PhaseMap: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("worker count changed sweep results")
	}
}

func TestPhaseMapCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := PhaseMapConfig{
		Base:       sweepBase(),
		AlphaMax:   2,
		LambdaMax:  1,
		Resolution: 10,
	}
	points, err := PhaseMap(ctx, cfg)
	if err == nil {
		t.Fatal("cancelled sweep should return an error")
	}
	if points != nil {
		t.Fatal("cancelled sweep must discard all progress")
	}
}

func TestPhaseMapZeroResolution(t *testing.T) {
	points, err := PhaseMap(context.Background(), PhaseMapConfig{Base: sweepBase()})
	if err != nil || points != nil {
		t.Fatalf("zero resolution should yield nothing, got %v points, err %v", len(points), err)
	}
}

func TestTaxCurveIncomeRevenue(t *testing.T) {
	base := sweepBase()
	cfg := TaxCurveConfig{
		Base:    base,
		Kind:    TaxIncome,
		MaxRate: 1.0,
		Steps:   10,
	}

	points, err := TaxCurve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("TaxCurve: %v", err)
	}
	if len(points) != 11 {
		t.Fatalf("expected 11 points, got %d", len(points))
	}

	// Rate 0 must reproduce the untaxed run exactly.
	untaxed := engine.Simulate(base)
	if points[0].Concentration != untaxed.Final().RewardConcentration {
		t.Fatalf("rate-0 concentration %v != untaxed run %v",
			points[0].Concentration, untaxed.Final().RewardConcentration)
	}
	if points[0].Revenue != 0 {
		t.Fatalf("rate-0 revenue = %v, want 0", points[0].Revenue)
	}

	// Income tax skims a fixed share of the unit reward each step, so
	// cumulative revenue is exactly rate × horizon and strictly increasing.
	for i, pt := range points {
		rate := float64(i) / 10
		want := rate * float64(base.Horizon)
		if math.Abs(pt.Revenue-want) > 1e-9 {
			t.Fatalf("point %d revenue = %v, want %v", i, pt.Revenue, want)
		}
		if math.Abs(pt.RatePct-rate*100) > 1e-9 {
			t.Fatalf("point %d rate = %v%%, want %v%%", i, pt.RatePct, rate*100)
		}
		if i > 0 && pt.Revenue <= points[i-1].Revenue {
			t.Fatalf("income revenue should increase with rate: point %d", i)
		}
	}
}

func TestTaxCurveWealth(t *testing.T) {
	cfg := TaxCurveConfig{
		Base:    sweepBase(),
		Kind:    TaxWealth,
		MaxRate: 0.2,
		Steps:   5,
	}

	points, err := TaxCurve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("TaxCurve: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	if points[0].Revenue != 0 {
		t.Fatalf("rate-0 wealth curve revenue = %v, want 0", points[0].Revenue)
	}
	for i, pt := range points {
		if pt.Revenue < 0 {
			t.Fatalf("point %d: negative revenue %v", i, pt.Revenue)
		}
		if i > 0 && pt.Revenue <= 0 {
			t.Fatalf("point %d: positive wealth tax rate should collect revenue", i)
		}
	}
}

func TestTaxCurveDeterministic(t *testing.T) {
	cfg := TaxCurveConfig{
		Base:    sweepBase(),
		Kind:    TaxIncome,
		MaxRate: 0.5,
		Steps:   8,
		Workers: 4,
	}

	a, err := TaxCurve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("TaxCurve: %v", err)
	}
	b, err := TaxCurve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("TaxCurve: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("repeated tax curve sweeps diverged")
	}
}

// Package config loads run configuration from TOML, overlaying file values
// onto defaults so an absent key never clobbers a sane setting.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/sweep"
)

// Config is the assembled runtime configuration.
type Config struct {
	Params engine.Params

	// Sweep settings.
	PhaseAlphaMin   float64
	PhaseAlphaMax   float64
	PhaseLambdaMin  float64
	PhaseLambdaMax  float64
	PhaseResolution int
	PhaseHorizon    int // reduced horizon for sweep points
	TaxKind         sweep.TaxKind
	TaxMaxRate      float64
	TaxSteps        int
	SweepWorkers    int

	// Infrastructure.
	DBPath  string
	APIPort int
}

// Default returns the baseline configuration used when no file is given.
func Default() Config {
	return Config{
		Params:          engine.DefaultParams(),
		PhaseAlphaMin:   0.0,
		PhaseAlphaMax:   2.0,
		PhaseLambdaMin:  0.0,
		PhaseLambdaMax:  1.0,
		PhaseResolution: 10,
		PhaseHorizon:    240,
		TaxKind:         sweep.TaxIncome,
		TaxMaxRate:      1.0,
		TaxSteps:        10,
		DBPath:          "data/meritsim.db",
		APIPort:         8080,
	}
}

// fileConfig maps config.toml keys onto runtime settings.
type fileConfig struct {
	Horizon           int     `toml:"horizon"`
	Alpha             float64 `toml:"alpha"`
	Lambda            float64 `toml:"lambda"`
	Churn             float64 `toml:"churn"`
	InitialAttachment float64 `toml:"initial_attachment"`
	Bins              int     `toml:"bins"`
	Seed              uint32  `toml:"seed"`
	IncomeTaxRate     float64 `toml:"income_tax_rate"`
	WealthTaxRate     float64 `toml:"wealth_tax_rate"`
	EntryModel        string  `toml:"entry_model"` // "uniform" or "wave"
	WaveFrequency     float64 `toml:"wave_frequency"`

	PhaseAlphaMin   float64 `toml:"phase_alpha_min"`
	PhaseAlphaMax   float64 `toml:"phase_alpha_max"`
	PhaseLambdaMin  float64 `toml:"phase_lambda_min"`
	PhaseLambdaMax  float64 `toml:"phase_lambda_max"`
	PhaseResolution int     `toml:"phase_resolution"`
	PhaseHorizon    int     `toml:"phase_horizon"`

	TaxKind      string  `toml:"tax_kind"` // "income" or "wealth"
	TaxMaxRate   float64 `toml:"tax_max_rate"`
	TaxSteps     int     `toml:"tax_steps"`
	SweepWorkers int     `toml:"sweep_workers"`

	DBPath  string `toml:"db_path"`
	APIPort int    `toml:"api_port"`
}

// Load reads a TOML file and overlays defined keys onto the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("horizon") {
		cfg.Params.Horizon = raw.Horizon
	}
	if meta.IsDefined("alpha") {
		cfg.Params.Alpha = raw.Alpha
	}
	if meta.IsDefined("lambda") {
		cfg.Params.Lambda = raw.Lambda
	}
	if meta.IsDefined("churn") {
		cfg.Params.Churn = raw.Churn
	}
	if meta.IsDefined("initial_attachment") {
		cfg.Params.InitialAttachment = raw.InitialAttachment
	}
	if meta.IsDefined("bins") {
		cfg.Params.Bins = raw.Bins
	}
	if meta.IsDefined("seed") {
		cfg.Params.Seed = raw.Seed
	}
	if meta.IsDefined("income_tax_rate") {
		cfg.Params.IncomeTaxRate = raw.IncomeTaxRate
	}
	if meta.IsDefined("wealth_tax_rate") {
		cfg.Params.WealthTaxRate = raw.WealthTaxRate
	}
	if meta.IsDefined("entry_model") {
		model, err := parseEntryModel(raw.EntryModel)
		if err != nil {
			return Config{}, err
		}
		cfg.Params.Entry = model
	}
	if meta.IsDefined("wave_frequency") {
		cfg.Params.WaveFrequency = raw.WaveFrequency
	}

	if meta.IsDefined("phase_alpha_min") {
		cfg.PhaseAlphaMin = raw.PhaseAlphaMin
	}
	if meta.IsDefined("phase_alpha_max") {
		cfg.PhaseAlphaMax = raw.PhaseAlphaMax
	}
	if meta.IsDefined("phase_lambda_min") {
		cfg.PhaseLambdaMin = raw.PhaseLambdaMin
	}
	if meta.IsDefined("phase_lambda_max") {
		cfg.PhaseLambdaMax = raw.PhaseLambdaMax
	}
	if meta.IsDefined("phase_resolution") {
		cfg.PhaseResolution = raw.PhaseResolution
	}
	if meta.IsDefined("phase_horizon") {
		cfg.PhaseHorizon = raw.PhaseHorizon
	}

	if meta.IsDefined("tax_kind") {
		kind, err := parseTaxKind(raw.TaxKind)
		if err != nil {
			return Config{}, err
		}
		cfg.TaxKind = kind
	}
	if meta.IsDefined("tax_max_rate") {
		cfg.TaxMaxRate = raw.TaxMaxRate
	}
	if meta.IsDefined("tax_steps") {
		cfg.TaxSteps = raw.TaxSteps
	}
	if meta.IsDefined("sweep_workers") {
		cfg.SweepWorkers = raw.SweepWorkers
	}

	if meta.IsDefined("db_path") {
		cfg.DBPath = raw.DBPath
	}
	if meta.IsDefined("api_port") {
		cfg.APIPort = raw.APIPort
	}

	return cfg, nil
}

func parseEntryModel(s string) (engine.EntryModel, error) {
	switch s {
	case "uniform":
		return engine.EntryUniform, nil
	case "wave":
		return engine.EntryWave, nil
	default:
		return 0, fmt.Errorf("unknown entry_model %q (want \"uniform\" or \"wave\")", s)
	}
}

func parseTaxKind(s string) (sweep.TaxKind, error) {
	switch s {
	case "income":
		return sweep.TaxIncome, nil
	case "wealth":
		return sweep.TaxWealth, nil
	default:
		return "", fmt.Errorf("unknown tax_kind %q (want \"income\" or \"wealth\")", s)
	}
}

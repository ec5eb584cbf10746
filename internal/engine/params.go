package engine

// EntryModel selects how an entrant's effort value is drawn.
type EntryModel uint8

const (
	// EntryUniform draws effort i.i.d. uniform from the run's PRNG stream.
	EntryUniform EntryModel = iota
	// EntryWave draws effort from a seeded smooth noise curve over entry
	// time, producing slow cohort drift instead of independent draws. Still
	// fully deterministic per seed.
	EntryWave
)

// Params is the immutable input record for one simulation run.
//
// Ranges are preconditions, not re-validated by the engine: Horizon ≥ 1
// (0 yields an empty run), Alpha ≥ 0, Lambda ≥ 0, Churn ∈ [0,1),
// InitialAttachment > 0, Bins ≥ 1, tax rates ∈ [0,1]. Out-of-domain values
// (negative churn, tax above 1, ...) leave behavior unspecified — the caller
// owns validation.
type Params struct {
	Horizon           int     `json:"horizon"`
	Alpha             float64 `json:"alpha"`  // reinforcement exponent
	Lambda            float64 `json:"lambda"` // effort weight
	Churn             float64 `json:"churn"`  // per-step attachment decay
	InitialAttachment float64 `json:"initial_attachment"`
	Bins              int     `json:"bins"` // effort histogram resolution
	Seed              uint32  `json:"seed"`
	IncomeTaxRate     float64 `json:"income_tax_rate"`
	WealthTaxRate     float64 `json:"wealth_tax_rate"`

	Entry         EntryModel `json:"entry_model"`
	WaveFrequency float64    `json:"wave_frequency"` // wave model only
}

// DefaultParams returns the interactive baseline parameter set.
func DefaultParams() Params {
	return Params{
		Horizon:           600,
		Alpha:             1.0,
		Lambda:            0.5,
		Churn:             0.0,
		InitialAttachment: 1.0,
		Bins:              10,
		Seed:              42,
		Entry:             EntryUniform,
		WaveFrequency:     0.01,
	}
}

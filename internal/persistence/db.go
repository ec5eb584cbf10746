// Package persistence provides SQLite-based storage for completed results:
// run summaries, phase maps, and tax curves, keyed by UUID. Only terminal
// outputs are stored — per-step series never touch the database.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/sweep"
)

// DB wraps a SQLite connection for result storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		horizon INTEGER NOT NULL,
		alpha REAL NOT NULL,
		lambda REAL NOT NULL,
		churn REAL NOT NULL,
		initial_attachment REAL NOT NULL,
		bins INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		income_tax_rate REAL NOT NULL,
		wealth_tax_rate REAL NOT NULL,
		entry_model INTEGER NOT NULL,
		reward_concentration REAL NOT NULL,
		wealth_concentration REAL NOT NULL,
		mutual_info REAL NOT NULL,
		top1_share REAL NOT NULL,
		top10_share REAL NOT NULL,
		tax_revenue REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phase_maps (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		resolution INTEGER NOT NULL,
		horizon INTEGER NOT NULL,
		churn REAL NOT NULL,
		seed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phase_points (
		map_id TEXT NOT NULL,
		row INTEGER NOT NULL,
		col INTEGER NOT NULL,
		alpha REAL NOT NULL,
		lambda REAL NOT NULL,
		regime TEXT NOT NULL,
		color TEXT NOT NULL,
		mutual_info REAL NOT NULL,
		concentration REAL NOT NULL,
		PRIMARY KEY (map_id, row, col)
	);

	CREATE TABLE IF NOT EXISTS tax_curves (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		max_rate REAL NOT NULL,
		steps INTEGER NOT NULL,
		horizon INTEGER NOT NULL,
		seed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tax_points (
		curve_id TEXT NOT NULL,
		rate_pct REAL NOT NULL,
		revenue REAL NOT NULL,
		concentration REAL NOT NULL,
		PRIMARY KEY (curve_id, rate_pct)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRow is one stored run summary.
type RunRow struct {
	ID                  string  `db:"id" json:"id"`
	CreatedAt           string  `db:"created_at" json:"created_at"`
	Horizon             int     `db:"horizon" json:"horizon"`
	Alpha               float64 `db:"alpha" json:"alpha"`
	Lambda              float64 `db:"lambda" json:"lambda"`
	Churn               float64 `db:"churn" json:"churn"`
	InitialAttachment   float64 `db:"initial_attachment" json:"initial_attachment"`
	Bins                int     `db:"bins" json:"bins"`
	Seed                uint32  `db:"seed" json:"seed"`
	IncomeTaxRate       float64 `db:"income_tax_rate" json:"income_tax_rate"`
	WealthTaxRate       float64 `db:"wealth_tax_rate" json:"wealth_tax_rate"`
	EntryModel          int     `db:"entry_model" json:"entry_model"`
	RewardConcentration float64 `db:"reward_concentration" json:"reward_concentration"`
	WealthConcentration float64 `db:"wealth_concentration" json:"wealth_concentration"`
	MutualInfo          float64 `db:"mutual_info" json:"mutual_info"`
	Top1Share           float64 `db:"top1_share" json:"top1_share"`
	Top10Share          float64 `db:"top10_share" json:"top10_share"`
	TaxRevenue          float64 `db:"tax_revenue" json:"tax_revenue"`
}

// SaveRun stores the terminal summary of a completed run and returns its ID.
func (db *DB) SaveRun(run *engine.Run) (string, error) {
	id := uuid.NewString()
	p := run.Params
	final := run.Final()

	_, err := db.conn.Exec(`INSERT INTO runs
		(id, created_at, horizon, alpha, lambda, churn, initial_attachment,
		 bins, seed, income_tax_rate, wealth_tax_rate, entry_model,
		 reward_concentration, wealth_concentration, mutual_info,
		 top1_share, top10_share, tax_revenue)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), p.Horizon, p.Alpha, p.Lambda,
		p.Churn, p.InitialAttachment, p.Bins, p.Seed, p.IncomeTaxRate,
		p.WealthTaxRate, int(p.Entry), final.RewardConcentration,
		final.WealthConcentration, final.MutualInfo, final.Top1Share,
		final.Top10Share, run.TaxRevenue,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	slog.Info("run saved", "id", id, "horizon", p.Horizon, "alpha", p.Alpha, "lambda", p.Lambda)
	return id, nil
}

// RecentRuns returns the most recent run summaries, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	var rows []RunRow
	err := db.conn.Select(&rows,
		"SELECT * FROM runs ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	return rows, nil
}

// SavePhaseMap stores a completed phase-map sweep and returns its ID.
func (db *DB) SavePhaseMap(cfg sweep.PhaseMapConfig, points []sweep.PhasePoint) (string, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO phase_maps
		(id, created_at, resolution, horizon, churn, seed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339),
		cfg.Resolution, cfg.Base.Horizon, cfg.Base.Churn, cfg.Base.Seed,
	)
	if err != nil {
		return "", fmt.Errorf("insert phase map: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO phase_points
		(map_id, row, col, alpha, lambda, regime, color, mutual_info, concentration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, pt := range points {
		_, err := stmt.Exec(id, pt.Row, pt.Col, pt.Alpha, pt.Lambda,
			pt.Regime, pt.Color, pt.MutualInfo, pt.Concentration)
		if err != nil {
			return "", fmt.Errorf("insert phase point (%d,%d): %w", pt.Row, pt.Col, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("phase map saved", "id", id, "points", len(points))
	return id, nil
}

// LoadPhaseMap returns the stored points of one phase map in positional
// order (row-major, row 0 first).
func (db *DB) LoadPhaseMap(id string) ([]sweep.PhasePoint, error) {
	var points []sweep.PhasePoint
	err := db.conn.Select(&points, `SELECT
		row AS "row", col AS "col", alpha, lambda, regime, color,
		mutual_info AS "mutualinfo", concentration
		FROM phase_points WHERE map_id = ? ORDER BY row, col`, id)
	if err != nil {
		return nil, fmt.Errorf("select phase points: %w", err)
	}
	return points, nil
}

// SaveTaxCurve stores a completed tax-rate sweep and returns its ID.
func (db *DB) SaveTaxCurve(cfg sweep.TaxCurveConfig, points []sweep.TaxCurvePoint) (string, error) {
	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO tax_curves
		(id, created_at, kind, max_rate, steps, horizon, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339),
		string(cfg.Kind), cfg.MaxRate, cfg.Steps, cfg.Base.Horizon, cfg.Base.Seed,
	)
	if err != nil {
		return "", fmt.Errorf("insert tax curve: %w", err)
	}

	for _, pt := range points {
		_, err := tx.Exec(`INSERT INTO tax_points
			(curve_id, rate_pct, revenue, concentration) VALUES (?, ?, ?, ?)`,
			id, pt.RatePct, pt.Revenue, pt.Concentration)
		if err != nil {
			return "", fmt.Errorf("insert tax point %.1f%%: %w", pt.RatePct, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("tax curve saved", "id", id, "kind", cfg.Kind, "points", len(points))
	return id, nil
}

// LoadTaxCurve returns the stored points of one tax curve ordered by rate.
func (db *DB) LoadTaxCurve(id string) ([]sweep.TaxCurvePoint, error) {
	var points []sweep.TaxCurvePoint
	err := db.conn.Select(&points, `SELECT
		rate_pct AS "ratepct", revenue, concentration
		FROM tax_points WHERE curve_id = ? ORDER BY rate_pct`, id)
	if err != nil {
		return nil, fmt.Errorf("select tax points: %w", err)
	}
	return points, nil
}

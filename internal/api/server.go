// Package api serves the engine's function-call boundary over HTTP JSON for
// presentation-layer consumers. GET endpoints are cheap reads; the POST
// sweep endpoints run real compute and are rate-limited per client.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/meritsim/internal/config"
	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/persistence"
	"github.com/talgya/meritsim/internal/regime"
	"github.com/talgya/meritsim/internal/sweep"
)

// Server serves simulations, sweeps, and stored results over HTTP.
type Server struct {
	Cfg  config.Config
	DB   *persistence.DB // optional; run storage disabled when nil
	Port int
}

// Handler builds the route table. Split from Start so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	simulateLimiter := NewSweepLimiter(120, time.Minute)
	sweepLimiter := NewSweepLimiter(20, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/regime", s.handleRegime)
	mux.HandleFunc("/api/v1/simulate", SweepLimitMiddleware(simulateLimiter, s.handleSimulate))
	mux.HandleFunc("/api/v1/phasemap", SweepLimitMiddleware(sweepLimiter, s.handlePhaseMap))
	mux.HandleFunc("/api/v1/taxcurve", SweepLimitMiddleware(sweepLimiter, s.handleTaxCurve))
	mux.HandleFunc("/api/v1/runs", s.handleRuns)

	return corsMiddleware(mux)
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "storage", s.DB != nil)

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware allows chart frontends on other origins to read the API.
// Set CORS_ORIGINS to a comma-separated allowlist; localhost dev servers
// are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowed[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"name":     "meritsim",
		"defaults": s.Cfg.Params,
		"storage":  s.DB != nil,
	})
}

// handleSimulate runs one trajectory. The request body may override any
// subset of the default parameters; absent fields keep their defaults.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	p := s.Cfg.Params
	if err := decodeInto(r, &p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Horizon < 0 || p.Horizon > 100000 {
		http.Error(w, "horizon must be in [0, 100000]", http.StatusBadRequest)
		return
	}

	run := engine.Simulate(p)

	var savedID string
	if s.DB != nil && r.URL.Query().Get("save") == "true" {
		id, err := s.DB.SaveRun(run)
		if err != nil {
			slog.Error("run save failed", "error", err)
		} else {
			savedID = id
		}
	}

	writeJSON(w, map[string]any{
		"run":      run,
		"saved_id": savedID,
	})
}

func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	alpha, err1 := queryFloat(r, "alpha")
	lambda, err2 := queryFloat(r, "lambda")
	churn, err3 := queryFloat(r, "churn")
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "alpha, lambda and churn query params required", http.StatusBadRequest)
		return
	}
	writeJSON(w, regime.Classify(alpha, lambda, churn))
}

func (s *Server) handlePhaseMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	cfg := sweep.PhaseMapConfig{
		Base:       s.Cfg.Params,
		AlphaMin:   s.Cfg.PhaseAlphaMin,
		AlphaMax:   s.Cfg.PhaseAlphaMax,
		LambdaMin:  s.Cfg.PhaseLambdaMin,
		LambdaMax:  s.Cfg.PhaseLambdaMax,
		Resolution: s.Cfg.PhaseResolution,
		Workers:    s.Cfg.SweepWorkers,
	}
	cfg.Base.Horizon = s.Cfg.PhaseHorizon
	if err := decodeInto(r, &cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.Resolution < 1 || cfg.Resolution > 50 {
		http.Error(w, "resolution must be in [1, 50]", http.StatusBadRequest)
		return
	}

	// A dropped client connection cancels the sweep between points.
	points, err := sweep.PhaseMap(r.Context(), cfg)
	if err != nil {
		http.Error(w, "sweep aborted", http.StatusRequestTimeout)
		return
	}

	var savedID string
	if s.DB != nil && r.URL.Query().Get("save") == "true" {
		id, err := s.DB.SavePhaseMap(cfg, points)
		if err != nil {
			slog.Error("phase map save failed", "error", err)
		} else {
			savedID = id
		}
	}

	writeJSON(w, map[string]any{
		"resolution": cfg.Resolution,
		"points":     points,
		"saved_id":   savedID,
	})
}

func (s *Server) handleTaxCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	cfg := sweep.TaxCurveConfig{
		Base:    s.Cfg.Params,
		Kind:    s.Cfg.TaxKind,
		MaxRate: s.Cfg.TaxMaxRate,
		Steps:   s.Cfg.TaxSteps,
		Workers: s.Cfg.SweepWorkers,
	}
	if err := decodeInto(r, &cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cfg.Steps < 1 || cfg.Steps > 200 {
		http.Error(w, "steps must be in [1, 200]", http.StatusBadRequest)
		return
	}
	if cfg.Kind != sweep.TaxIncome && cfg.Kind != sweep.TaxWealth {
		http.Error(w, `kind must be "income" or "wealth"`, http.StatusBadRequest)
		return
	}

	points, err := sweep.TaxCurve(r.Context(), cfg)
	if err != nil {
		http.Error(w, "sweep aborted", http.StatusRequestTimeout)
		return
	}

	var savedID string
	if s.DB != nil && r.URL.Query().Get("save") == "true" {
		id, err := s.DB.SaveTaxCurve(cfg, points)
		if err != nil {
			slog.Error("tax curve save failed", "error", err)
		} else {
			savedID = id
		}
	}

	writeJSON(w, map[string]any{
		"kind":     cfg.Kind,
		"points":   points,
		"saved_id": savedID,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "storage not available", http.StatusServiceUnavailable)
		return
	}

	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := s.DB.RecentRuns(limit)
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []persistence.RunRow{}
	}
	writeJSON(w, rows)
}

// decodeInto unmarshals the request body over a prefilled value so absent
// fields keep their defaults. An empty body is valid.
func decodeInto(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func queryFloat(r *http.Request, key string) (float64, error) {
	return strconv.ParseFloat(r.URL.Query().Get(key), 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/talgya/meritsim/internal/engine"
	"github.com/talgya/meritsim/internal/sweep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefinedKeysOnly(t *testing.T) {
	path := writeConfig(t, `
horizon = 1200
alpha = 1.8
tax_kind = "wealth"
entry_model = "wave"
db_path = "/tmp/custom.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Params.Horizon != 1200 {
		t.Fatalf("horizon = %d, want 1200", cfg.Params.Horizon)
	}
	if cfg.Params.Alpha != 1.8 {
		t.Fatalf("alpha = %v, want 1.8", cfg.Params.Alpha)
	}
	if cfg.Params.Entry != engine.EntryWave {
		t.Fatalf("entry model = %v, want wave", cfg.Params.Entry)
	}
	if cfg.TaxKind != sweep.TaxWealth {
		t.Fatalf("tax kind = %v, want wealth", cfg.TaxKind)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}

	// Undefined keys keep defaults.
	def := Default()
	if cfg.Params.Lambda != def.Params.Lambda {
		t.Fatalf("lambda should keep its default: %v", cfg.Params.Lambda)
	}
	if cfg.PhaseResolution != def.PhaseResolution {
		t.Fatalf("phase resolution should keep its default: %v", cfg.PhaseResolution)
	}
	if cfg.APIPort != def.APIPort {
		t.Fatalf("api port should keep its default: %v", cfg.APIPort)
	}
}

func TestLoadZeroValueOverride(t *testing.T) {
	// An explicit zero must override the default, unlike an absent key.
	path := writeConfig(t, `churn = 0.0
seed = 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Params.Churn != 0 {
		t.Fatalf("churn = %v, want explicit 0", cfg.Params.Churn)
	}
	if cfg.Params.Seed != 0 {
		t.Fatalf("seed = %v, want explicit 0", cfg.Params.Seed)
	}
}

func TestLoadRejectsBadEnums(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad entry model", body: `entry_model = "gaussian"`},
		{name: "bad tax kind", body: `tax_kind = "vat"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected an error for invalid enum value")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

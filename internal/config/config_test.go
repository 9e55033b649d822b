package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Household.PoolSize != 20 {
		t.Errorf("household pool size = %d, want 20", cfg.Household.PoolSize)
	}
	if cfg.Household.AmountThreshold != 5 {
		t.Errorf("household threshold = %v, want 5", cfg.Household.AmountThreshold)
	}
	if cfg.Card.PoolSize != 200 || cfg.Card.MapperLimit != 200 {
		t.Errorf("card pool/limit = %d/%d, want 200/200", cfg.Card.PoolSize, cfg.Card.MapperLimit)
	}
	if !cfg.Card.Remap {
		t.Error("card remap should default to true")
	}
	if cfg.Wallet.ConversionRate != 0.012 {
		t.Errorf("wallet conversion rate = %v, want 0.012", cfg.Wallet.ConversionRate)
	}
	if cfg.Wallet.SuccessStatus != "Successful" {
		t.Errorf("wallet success status = %q, want Successful", cfg.Wallet.SuccessStatus)
	}
	if cfg.OverflowPolicy != OverflowRandom {
		t.Errorf("overflow policy = %q, want %q", cfg.OverflowPolicy, OverflowRandom)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoad_YAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge.yaml")
	content := []byte(`
seed: 42
overflow_policy: sticky
household:
  pool_size: 10
  amount_threshold: 1000
  window:
    start: "2024-01-01"
    end: "2024-01-31"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Seed)
	}
	if cfg.OverflowPolicy != OverflowSticky {
		t.Errorf("overflow policy = %q, want sticky", cfg.OverflowPolicy)
	}
	if cfg.Household.PoolSize != 10 {
		t.Errorf("household pool size = %d, want 10", cfg.Household.PoolSize)
	}
	if cfg.Household.AmountThreshold != 1000 {
		t.Errorf("household threshold = %v, want 1000", cfg.Household.AmountThreshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Card.PoolSize != 200 {
		t.Errorf("card pool size = %d, want default 200", cfg.Card.PoolSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MERGE_SEED", "7")
	t.Setenv("MERGE_OVERFLOW_POLICY", "sticky")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Seed != 7 {
		t.Errorf("seed = %d, want 7 from env", cfg.Seed)
	}
	if cfg.OverflowPolicy != OverflowSticky {
		t.Errorf("overflow policy = %q, want sticky from env", cfg.OverflowPolicy)
	}
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("MERGE_OVERFLOW_POLICY", "roulette")

	if _, err := Load(""); err == nil {
		t.Error("expected error for unknown overflow policy")
	}
}

func TestWindowDates(t *testing.T) {
	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{"valid", Window{Start: "2024-09-01", End: "2025-01-12"}, false},
		{"single day", Window{Start: "2024-09-01", End: "2024-09-01"}, false},
		{"reversed", Window{Start: "2025-01-12", End: "2024-09-01"}, true},
		{"garbage start", Window{Start: "not-a-date", End: "2024-09-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.window.Dates()
			if (err != nil) != tt.wantErr {
				t.Errorf("Dates() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

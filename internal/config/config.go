// Package config holds the run configuration for the merge pipeline and its
// exports. Values come from built-in defaults, then an optional YAML file,
// then environment variables (a .env file is honoured via godotenv).
package config

import (
	"fmt"
	"os"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Overflow policies for the identity mapper.
const (
	OverflowRandom = "random"
	OverflowSticky = "sticky"
)

// Window is an inclusive calendar-date range in YYYY-MM-DD form.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Dates parses the window bounds.
func (w Window) Dates() (civil.Date, civil.Date, error) {
	start, err := civil.ParseDate(w.Start)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid window start %q: %w", w.Start, err)
	}
	end, err := civil.ParseDate(w.End)
	if err != nil {
		return civil.Date{}, civil.Date{}, fmt.Errorf("invalid window end %q: %w", w.End, err)
	}
	if end.Before(start) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("window end %s before start %s", w.End, w.Start)
	}
	return start, end, nil
}

// Household configures the household-ledger stage.
type Household struct {
	Input           string  `yaml:"input"`
	Output          string  `yaml:"output"`
	PoolSize        int     `yaml:"pool_size"`
	AmountThreshold float64 `yaml:"amount_threshold"`
	Window          Window  `yaml:"window"`
}

// Card configures the credit-card stage.
type Card struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	PoolSize    int    `yaml:"pool_size"`
	MapperLimit int    `yaml:"mapper_limit"`
	NameLimit   int    `yaml:"name_limit"`
	Remap       bool   `yaml:"remap"`
	Window      Window `yaml:"window"`
}

// Wallet configures the digital-wallet stage.
type Wallet struct {
	Input          string  `yaml:"input"`
	Output         string  `yaml:"output"`
	MapperLimit    int     `yaml:"mapper_limit"`
	ConversionRate float64 `yaml:"conversion_rate"`
	SuccessStatus  string  `yaml:"success_status"`
	Window         Window  `yaml:"window"`
}

// BigQueryExport configures the optional warehouse export of the final table.
type BigQueryExport struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
}

// Export configures the optional artifact exports. Empty values disable them.
type Export struct {
	GCSBucket string         `yaml:"gcs_bucket"`
	BigQuery  BigQueryExport `yaml:"bigquery"`
}

// Config is the full pipeline configuration.
type Config struct {
	// Seed drives every random draw in the run. Zero means time-derived,
	// which makes re-runs produce different resampled dates and overflow
	// identities.
	Seed int64 `yaml:"seed"`

	// OverflowPolicy is "random" (fresh draw per occurrence) or "sticky"
	// (first draw memoized per raw identifier).
	OverflowPolicy string `yaml:"overflow_policy"`

	Household Household `yaml:"household"`
	Card      Card      `yaml:"card"`
	Wallet    Wallet    `yaml:"wallet"`

	MergedOutput string `yaml:"merged_output"`
	FinalOutput  string `yaml:"final_output"`

	Export Export `yaml:"export"`
}

// Default returns the configuration matching the historical dataset windows.
func Default() Config {
	return Config{
		OverflowPolicy: OverflowRandom,
		Household: Household{
			Input:           "data/daily_household_transactions.csv",
			Output:          "out/household_clean.csv",
			PoolSize:        20,
			AmountThreshold: 5,
			Window:          Window{Start: "2024-12-12", End: "2025-01-12"},
		},
		Card: Card{
			Input:       "data/credit_card_transaction_flow.csv",
			Output:      "out/card_clean.csv",
			PoolSize:    200,
			MapperLimit: 200,
			NameLimit:   200,
			Remap:       true,
			Window:      Window{Start: "2024-09-01", End: "2025-01-12"},
		},
		Wallet: Wallet{
			Input:          "data/digital_wallet_transactions.csv",
			Output:         "out/wallet_clean.csv",
			MapperLimit:    200,
			ConversionRate: 0.012,
			SuccessStatus:  "Successful",
			Window:         Window{Start: "2024-09-01", End: "2025-01-12"},
		},
		MergedOutput: "out/merged_transactions.csv",
		FinalOutput:  "out/merged_transactions_with_fullnames.csv",
	}
}

// Load builds the configuration: defaults, overlaid by the YAML file at path
// (if non-empty), overlaid by environment variables.
func Load(path string) (Config, error) {
	// A missing .env file is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MERGE_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MERGE_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("MERGE_OVERFLOW_POLICY"); v != "" {
		c.OverflowPolicy = v
	}
	if v := os.Getenv("MERGE_GCS_BUCKET"); v != "" {
		c.Export.GCSBucket = v
	}
	if v := os.Getenv("MERGE_BQ_PROJECT"); v != "" {
		c.Export.BigQuery.ProjectID = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.OverflowPolicy != OverflowRandom && c.OverflowPolicy != OverflowSticky {
		return fmt.Errorf("invalid overflow_policy %q: want %q or %q", c.OverflowPolicy, OverflowRandom, OverflowSticky)
	}
	if c.Household.PoolSize <= 0 {
		return fmt.Errorf("household pool_size must be positive, got %d", c.Household.PoolSize)
	}
	if c.Card.PoolSize <= 0 || c.Card.MapperLimit <= 0 || c.Card.NameLimit <= 0 {
		return fmt.Errorf("card pool_size, mapper_limit and name_limit must be positive")
	}
	if c.Wallet.MapperLimit <= 0 {
		return fmt.Errorf("wallet mapper_limit must be positive, got %d", c.Wallet.MapperLimit)
	}
	if c.Wallet.ConversionRate <= 0 {
		return fmt.Errorf("wallet conversion_rate must be positive, got %v", c.Wallet.ConversionRate)
	}
	for _, w := range []Window{c.Household.Window, c.Card.Window, c.Wallet.Window} {
		if _, _, err := w.Dates(); err != nil {
			return err
		}
	}
	return nil
}

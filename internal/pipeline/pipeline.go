// Package pipeline implements the normalization-and-merge core: three
// source-specific cleaning stages, schema standardization onto the canonical
// record, merging, and display-name backfill. Stages run independently; a
// SchemaError in one source never aborts its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/transaction-unifier/internal/config"
	"github.com/dvloznov/transaction-unifier/internal/csvio"
	"github.com/dvloznov/transaction-unifier/internal/domain"
	"github.com/dvloznov/transaction-unifier/internal/export"
)

// Step is a single step of the merge pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	RunID  string
	Config config.Config
	RNG    *rand.Rand
	Log    zerolog.Logger

	// Standardized frames, nil when the owning stage failed.
	Household []domain.Transaction
	Card      []domain.Transaction
	Wallet    []domain.Transaction

	// StageErrors collects per-source SchemaErrors without aborting the run.
	StageErrors []error

	Merged []domain.Transaction
	Names  NameTable
	Final  []domain.Transaction
}

// NewState prepares run state. A zero seed falls back to wall-clock time,
// making the run non-reproducible.
func NewState(cfg config.Config, log zerolog.Logger) *State {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := uuid.NewString()
	return &State{
		RunID:  runID,
		Config: cfg,
		RNG:    rand.New(rand.NewSource(seed)),
		Log:    log.With().Str("run_id", runID).Logger(),
	}
}

// runSource executes one source stage end to end: load the raw CSV, clean it,
// persist the per-source artifact and standardize. SchemaErrors are recorded
// on the state and skip the source; any other failure aborts the run.
func runSource(
	state *State,
	input, output string,
	run func(*csvio.Table) (*csvio.Table, error),
	standardize func(*csvio.Table) ([]domain.Transaction, error),
	dst *[]domain.Transaction,
) error {
	raw, err := csvio.ReadFile(input)
	if err != nil {
		return err
	}

	clean, err := run(raw)
	if err == nil {
		*dst, err = standardize(clean)
	}
	if err != nil {
		if IsSchemaError(err) {
			state.Log.Error().Err(err).Msg("source stage failed, continuing with remaining sources")
			state.StageErrors = append(state.StageErrors, err)
			*dst = nil
			return nil
		}
		return err
	}

	if err := ensureDir(output); err != nil {
		return err
	}
	return clean.WriteFile(output)
}

// HouseholdStep cleans and standardizes the household ledger.
type HouseholdStep struct{}

func (HouseholdStep) Name() string { return "household" }

func (HouseholdStep) Execute(ctx context.Context, state *State) error {
	stage, err := NewHouseholdStage(state.Config.Household, state.RNG, state.Log)
	if err != nil {
		return err
	}
	return runSource(state, state.Config.Household.Input, state.Config.Household.Output,
		stage.Run, StandardizeHousehold, &state.Household)
}

// CardStep cleans and standardizes the credit-card flow.
type CardStep struct{}

func (CardStep) Name() string { return "card" }

func (CardStep) Execute(ctx context.Context, state *State) error {
	stage, err := NewCardStage(state.Config.Card, state.Config.OverflowPolicy, state.RNG, state.Log)
	if err != nil {
		return err
	}
	return runSource(state, state.Config.Card.Input, state.Config.Card.Output,
		stage.Run, StandardizeCard, &state.Card)
}

// WalletStep cleans and standardizes the digital-wallet events.
type WalletStep struct{}

func (WalletStep) Name() string { return "wallet" }

func (WalletStep) Execute(ctx context.Context, state *State) error {
	stage, err := NewWalletStage(state.Config.Wallet, state.Config.OverflowPolicy, state.RNG, state.Log)
	if err != nil {
		return err
	}
	return runSource(state, state.Config.Wallet.Input, state.Config.Wallet.Output,
		stage.Run, StandardizeWallet, &state.Wallet)
}

// MergeStep concatenates the standardized frames in fixed source order and
// persists the pre-backfill artifact.
type MergeStep struct{}

func (MergeStep) Name() string { return "merge" }

func (MergeStep) Execute(ctx context.Context, state *State) error {
	frames := []struct {
		source string
		txs    []domain.Transaction
	}{
		{"household", state.Household},
		{"card", state.Card},
		{"wallet", state.Wallet},
	}
	for _, f := range frames {
		if len(f.txs) == 0 {
			state.Log.Warn().Str("source", f.source).Msg("source contributed no rows to the merge")
		}
	}

	state.Merged = Concat(state.Household, state.Card, state.Wallet)

	if err := ensureDir(state.Config.MergedOutput); err != nil {
		return err
	}
	return domain.WriteFile(state.Config.MergedOutput, state.Merged)
}

// BackfillStep fills missing display names from the card-derived name table
// and persists the final artifact.
type BackfillStep struct{}

func (BackfillStep) Name() string { return "backfill" }

func (BackfillStep) Execute(ctx context.Context, state *State) error {
	state.Names = BuildNameTable(state.Card)
	state.Final = Backfill(state.Merged, state.Names)

	if err := ensureDir(state.Config.FinalOutput); err != nil {
		return err
	}
	return domain.WriteFile(state.Config.FinalOutput, state.Final)
}

// ExportStep ships the output artifacts to the configured export targets.
// Unconfigured targets are skipped.
type ExportStep struct{}

func (ExportStep) Name() string { return "export" }

func (ExportStep) Execute(ctx context.Context, state *State) error {
	cfg := state.Config

	if bucket := cfg.Export.GCSBucket; bucket != "" {
		paths := []string{cfg.MergedOutput, cfg.FinalOutput}
		for _, p := range []string{cfg.Household.Output, cfg.Card.Output, cfg.Wallet.Output} {
			if _, err := os.Stat(p); err == nil {
				paths = append(paths, p)
			}
		}
		if err := export.UploadArtifacts(ctx, bucket, state.RunID, paths...); err != nil {
			return fmt.Errorf("gcs export: %w", err)
		}
		state.Log.Info().Str("bucket", bucket).Int("artifacts", len(paths)).Msg("artifacts uploaded")
	}

	if bq := cfg.Export.BigQuery; bq.ProjectID != "" {
		exporter, err := export.NewBigQueryExporter(ctx, bq.ProjectID, bq.Dataset, bq.Table)
		if err != nil {
			return fmt.Errorf("bigquery export: %w", err)
		}
		defer exporter.Close()

		if err := exporter.Export(ctx, state.Final); err != nil {
			return fmt.Errorf("bigquery export: %w", err)
		}
		count, err := exporter.CountRows(ctx)
		if err != nil {
			return fmt.Errorf("bigquery export: %w", err)
		}
		state.Log.Info().Int64("table_rows", count).Msg("final table exported to BigQuery")
	}

	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first fatal error.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %s: %w", step.Name(), err)
		}
	}
	return nil
}

// NewMergePipeline creates the standard pipeline: three independent source
// stages, merge, backfill, export.
func NewMergePipeline() *Pipeline {
	return NewPipeline(
		HouseholdStep{},
		CardStep{},
		WalletStep{},
		MergeStep{},
		BackfillStep{},
		ExportStep{},
	)
}

// Run executes a full merge run. The returned state is valid even when the
// error is non-nil because of isolated source failures.
func Run(ctx context.Context, cfg config.Config, log zerolog.Logger) (*State, error) {
	state := NewState(cfg, log)
	state.Log.Info().Msg("starting merge run")

	if err := NewMergePipeline().Execute(ctx, state); err != nil {
		return state, err
	}

	state.Log.Info().
		Int("household_rows", len(state.Household)).
		Int("card_rows", len(state.Card)).
		Int("wallet_rows", len(state.Wallet)).
		Int("merged_rows", len(state.Merged)).
		Msg("merge run complete")

	if len(state.StageErrors) > 0 {
		return state, errors.Join(state.StageErrors...)
	}
	return state, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
